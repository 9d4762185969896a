package audit

import (
	"regexp"
	"strings"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
)

// Path namespaces mapped to classification levels. Admin and auth surfaces
// carry credentials and privileged state, payments and user records carry
// personal data, everything else under /api/ is internal plumbing.
var (
	restrictedPaths   = []string{"/admin", "/api/admin", "/api/auth", "/auth"}
	confidentialPaths = []string{"/api/payment", "/api/payments", "/api/user", "/api/users", "/api/orders"}

	pciPaths   = []string{"/api/payment", "/api/payments", "/api/billing", "/api/cards"}
	hipaaPaths = []string{"/api/health", "/api/medical"}
)

func pathHasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ClassifyPath derives the data classification from the request path.
func ClassifyPath(path string) domain.DataClassification {
	switch {
	case pathHasPrefix(path, restrictedPaths):
		return domain.ClassificationRestricted
	case pathHasPrefix(path, confidentialPaths):
		return domain.ClassificationConfidential
	case strings.HasPrefix(path, "/api/"):
		return domain.ClassificationInternal
	default:
		return domain.ClassificationPublic
	}
}

// piiFieldPattern matches field names that carry personal data when they
// appear in a captured body snapshot.
var piiFieldPattern = regexp.MustCompile(`(?i)"(email|phone|telephone|address|firstname|first_name|lastname|last_name|fullname|full_name|birthdate|birth_date|dob|passport|telegramid|telegram_id)"\s*:`)

// Compliance derives the regulatory flags for an event from its path and
// the already-sanitized body snapshots.
func Compliance(path string, bodies ...string) domain.ComplianceFlags {
	var flags domain.ComplianceFlags

	for _, body := range bodies {
		if body != "" && piiFieldPattern.MatchString(body) {
			flags.PII = true
			flags.GDPR = true
			break
		}
	}
	if pathHasPrefix(path, []string{"/api/user", "/api/users"}) {
		flags.PII = true
		flags.GDPR = true
	}
	if pathHasPrefix(path, pciPaths) {
		flags.PCI = true
	}
	if pathHasPrefix(path, hipaaPaths) {
		flags.HIPAA = true
	}
	return flags
}
