package problem

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// Fingerprint keys used in SARIF documents.
const (
	FingerprintKey         = "equalIndicator/v1"
	PropertyFingerprint    = "qodana.fingerprint"
	PropertyProblemType    = "qodana.problemType"
	PropertySeverity       = "qodana.severity"
	PropertyGroup          = "qodana.group"
	PropertyModule         = "qodana.module"
	PropertyRelatedProblem = "qodana.relatedProblemHash"
	PropertyLanguage       = "qodana.language"
)

const fingerprintSeparator = "\x00"

// Fingerprint hashes the normalized rule id, path, snippet and message of a problem.
// Line and column offsets are deliberately excluded, so moving or reformatting code
// keeps the fingerprint.
func Fingerprint(ruleID, filePath, snippet, message string) string {
	h := sha256.New()

	for i, part := range []string{
		strings.TrimSpace(ruleID),
		NormalizePath(filePath),
		collapseSpace(snippet),
		collapseSpace(message),
	} {
		if i > 0 {
			h.Write([]byte(fingerprintSeparator))
		}

		h.Write([]byte(part))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// NormalizePath converts a path to a cleaned, slash-separated, relative form.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	p = strings.TrimPrefix(p, "file://")

	if p == "" {
		return ""
	}

	return strings.TrimPrefix(path.Clean(p), "./")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
