package problem

// Type tags how a problem was produced and how its locations are to be read.
type Type string

// Problem types.
const (
	TypeRegular                      Type = "REGULAR"
	TypeTaint                        Type = "TAINT"
	TypeDuplicates                   Type = "DUPLICATES"
	TypeVulnerableAPIRelatedLocation Type = "VULNERABLE_API_WITH_RELATED_LOCATIONS"
	TypeIncorrectFormatting          Type = "INCORRECT_FORMATTING"
)

// ParseType returns the problem type for s, falling back to TypeRegular.
func ParseType(s string) Type {
	switch t := Type(s); t {
	case TypeTaint, TypeDuplicates, TypeVulnerableAPIRelatedLocation, TypeIncorrectFormatting:
		return t
	default:
		return TypeRegular
	}
}

// BaselineState classifies a problem against a baseline report.
type BaselineState string

// Baseline states.
const (
	StateUnchanged BaselineState = "UNCHANGED"
	StateNew       BaselineState = "NEW"
	StateUpdated   BaselineState = "UPDATED"
	StateAbsent    BaselineState = "ABSENT"
)

// BaselineStates lists every state in report order.
func BaselineStates() []BaselineState {
	return []BaselineState{StateNew, StateUpdated, StateUnchanged, StateAbsent}
}

// SARIF returns the SARIF baselineState value.
func (b BaselineState) SARIF() string {
	switch b {
	case StateUnchanged:
		return "unchanged"
	case StateNew:
		return "new"
	case StateUpdated:
		return "updated"
	case StateAbsent:
		return "absent"
	default:
		return ""
	}
}

// BaselineStateFromSARIF parses a SARIF baselineState value. Empty input yields "".
func BaselineStateFromSARIF(s string) BaselineState {
	switch s {
	case "unchanged":
		return StateUnchanged
	case "new":
		return StateNew
	case "updated":
		return StateUpdated
	case "absent":
		return StateAbsent
	default:
		return ""
	}
}
