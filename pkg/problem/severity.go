package problem

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSeverity is returned when a severity name cannot be parsed.
var ErrUnknownSeverity = errors.New("unknown severity")

// Severity is the Qodana severity of a reported problem.
type Severity string

// Severity levels, most severe first.
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityModerate Severity = "MODERATE"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// SARIF result levels.
const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelNote    = "note"
	LevelNone    = "none"
)

// Severities lists every severity ordered from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityModerate, SeverityLow, SeverityInfo}
}

// ParseSeverity accepts Qodana severity names and SARIF levels, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return SeverityCritical, nil
	case "HIGH", "ERROR":
		return SeverityHigh, nil
	case "MODERATE", "WARNING":
		return SeverityModerate, nil
	case "LOW", "NOTE", "WEAK WARNING":
		return SeverityLow, nil
	case "INFO", "NONE", "TYPO":
		return SeverityInfo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
	}
}

// SeverityFromLevel maps a SARIF level onto a severity. Unknown levels are treated as warnings,
// matching the SARIF default.
func SeverityFromLevel(level string) Severity {
	switch level {
	case LevelError:
		return SeverityHigh
	case LevelNote:
		return SeverityLow
	case LevelNone:
		return SeverityInfo
	default:
		return SeverityModerate
	}
}

// Level returns the SARIF level for the severity.
func (s Severity) Level() string {
	switch s {
	case SeverityCritical, SeverityHigh:
		return LevelError
	case SeverityModerate:
		return LevelWarning
	case SeverityLow:
		return LevelNote
	default:
		return LevelNone
	}
}

// Label returns the name followed by the SARIF level it is also configured
// as, e.g. "HIGH (ERROR)".
func (s Severity) Label() string {
	switch s {
	case SeverityHigh, SeverityModerate, SeverityLow:
		return fmt.Sprintf("%s (%s)", s, strings.ToUpper(s.Level()))
	default:
		return string(s)
	}
}

// Rank orders severities; lower is more severe.
func (s Severity) Rank() int {
	for i, sev := range Severities() {
		if sev == s {
			return i
		}
	}

	return len(Severities())
}

// String implements fmt.Stringer.
func (s Severity) String() string {
	return string(s)
}
