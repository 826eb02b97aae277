package problem

import (
	"fmt"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/src-d/enry/v2"
)

// FromSARIF converts a SARIF result into an inspection problem of the given group.
// Fingerprints already present on the result win over a freshly computed one, so a
// re-read report keeps the equality keys it was written with.
func FromSARIF(group string, result *sarif.Result) *InspectionProblem {
	p := &InspectionProblem{
		Group:  group,
		Result: result,
		Type:   TypeRegular,
	}

	if result == nil {
		return p
	}

	if result.RuleID != nil {
		p.InspectionID = *result.RuleID
	}

	if result.Message.Text != nil {
		p.Message = *result.Message.Text
	}

	p.Severity = severityOf(result)

	if len(result.Locations) > 0 {
		p.Path, p.Region = locationOf(result.Locations[0])
	}

	if v, ok := stringProperty(result, PropertyGroup); ok && group == "" {
		p.Group = v
	}

	if v, ok := stringProperty(result, PropertyProblemType); ok {
		p.Type = ParseType(v)
	}

	if v, ok := stringProperty(result, PropertyModule); ok {
		p.Module = v
	}

	if v, ok := stringProperty(result, PropertyRelatedProblem); ok {
		p.RelatedHash = v
	}

	p.Language = DetectLanguage(p.Path)
	if v, ok := stringProperty(result, PropertyLanguage); ok {
		p.Language = v
	}

	p.Fingerprint = existingFingerprint(result)
	if p.Fingerprint == "" {
		p.Fingerprint = Fingerprint(p.InspectionID, p.Path, p.Region.Snippet, p.Message)
	}

	return p
}

// ToSARIF stamps the problem's derived attributes onto its SARIF payload and returns it.
// A problem without a payload gets a minimal result built from its fields.
func (p *InspectionProblem) ToSARIF() *sarif.Result {
	result := p.Result
	if result == nil {
		result = sarif.NewRuleResult(p.InspectionID).
			WithMessage(sarif.NewTextMessage(p.Message)).
			WithLevel(p.Severity.Level())

		if p.Path != "" {
			region := sarif.NewRegion()
			if p.Region.StartLine > 0 {
				region.WithStartLine(p.Region.StartLine)
			}

			if p.Region.StartColumn > 0 {
				region.WithStartColumn(p.Region.StartColumn)
			}

			if p.Region.Snippet != "" {
				region.WithSnippet(sarif.NewArtifactContent().WithText(p.Region.Snippet))
			}

			result.WithLocations([]*sarif.Location{
				sarif.NewLocation().WithPhysicalLocation(
					sarif.NewPhysicalLocation().
						WithArtifactLocation(sarif.NewArtifactLocation().WithUri(p.Path)).
						WithRegion(region),
				),
			})
		}

		p.Result = result
	}

	if result.Properties == nil {
		result.Properties = make(map[string]interface{})
	}

	result.Properties[PropertyFingerprint] = p.Fingerprint
	result.Properties[PropertyProblemType] = string(p.Type)
	result.Properties[PropertySeverity] = string(p.Severity)
	result.Properties[PropertyGroup] = p.Group

	if p.Module != "" {
		result.Properties[PropertyModule] = p.Module
	}

	if p.RelatedHash != "" {
		result.Properties[PropertyRelatedProblem] = p.RelatedHash
	}

	if p.Language != "" {
		result.Properties[PropertyLanguage] = p.Language
	}

	if result.PartialFingerprints == nil {
		result.PartialFingerprints = make(map[string]interface{})
	}

	result.PartialFingerprints[FingerprintKey] = p.Fingerprint

	return result
}

// DetectLanguage guesses the language of a file from its extension.
func DetectLanguage(filePath string) string {
	if filePath == "" {
		return ""
	}

	lang, _ := enry.GetLanguageByExtension(filePath)

	return lang
}

func severityOf(result *sarif.Result) Severity {
	if v, ok := stringProperty(result, PropertySeverity); ok {
		if sev, err := ParseSeverity(v); err == nil {
			return sev
		}
	}

	if result.Level != nil {
		return SeverityFromLevel(*result.Level)
	}

	return SeverityModerate
}

func locationOf(loc *sarif.Location) (string, Region) {
	var region Region

	if loc == nil || loc.PhysicalLocation == nil {
		return "", region
	}

	var filePath string

	phys := loc.PhysicalLocation
	if phys.ArtifactLocation != nil && phys.ArtifactLocation.URI != nil {
		filePath = NormalizePath(*phys.ArtifactLocation.URI)
	}

	if r := phys.Region; r != nil {
		region.StartLine = derefInt(r.StartLine)
		region.StartColumn = derefInt(r.StartColumn)
		region.EndLine = derefInt(r.EndLine)
		region.EndColumn = derefInt(r.EndColumn)

		if r.Snippet != nil && r.Snippet.Text != nil {
			region.Snippet = *r.Snippet.Text
		}
	}

	return filePath, region
}

func existingFingerprint(result *sarif.Result) string {
	if v, ok := result.PartialFingerprints[FingerprintKey]; ok {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}

	if v, ok := stringProperty(result, PropertyFingerprint); ok {
		return v
	}

	return ""
}

func stringProperty(result *sarif.Result, key string) (string, bool) {
	if result.Properties == nil {
		return "", false
	}

	v, ok := result.Properties[key].(string)
	if !ok || v == "" {
		return "", false
	}

	return v, true
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}

	return *v
}
