package audit

import (
	"encoding/json"
	"regexp"
	"strings"
)

// RedactedMarker replaces every matched field value and pattern hit.
const RedactedMarker = "[REDACTED]"

// DefaultSensitiveFields are the field names whose values are always
// redacted, regardless of content. Matching is case-insensitive substring,
// so "userPassword" and "x-api-key" both hit.
var DefaultSensitiveFields = []string{
	"password", "passwd", "secret", "token", "authorization", "cookie",
	"apikey", "api_key", "api-key", "credential", "privatekey", "private_key",
	"cardnumber", "card_number", "cvv", "cvc", "pin", "ssn", "otp",
}

// Value patterns caught even under innocent field names.
var defaultValuePatterns = []*regexp.Regexp{
	// JWT-shaped values
	regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`),
	// Bearer credentials
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]{16,}=*`),
	// PEM blocks
	regexp.MustCompile(`-----BEGIN[ A-Z]*PRIVATE KEY-----[\s\S]*?-----END[ A-Z]*PRIVATE KEY-----`),
	// Card numbers (13-19 digits, optionally separated)
	regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`),
}

// Redactor removes sensitive material from captured payloads before they are
// logged or persisted.
type Redactor struct {
	fields   []string
	patterns []*regexp.Regexp
}

// NewRedactor builds a Redactor. extraFields from configuration are added on
// top of DefaultSensitiveFields.
func NewRedactor(extraFields []string) *Redactor {
	fields := make([]string, 0, len(DefaultSensitiveFields)+len(extraFields))
	for _, f := range DefaultSensitiveFields {
		fields = append(fields, strings.ToLower(f))
	}
	for _, f := range extraFields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			fields = append(fields, f)
		}
	}
	return &Redactor{fields: fields, patterns: defaultValuePatterns}
}

func (r *Redactor) sensitiveField(name string) bool {
	name = strings.ToLower(name)
	for _, f := range r.fields {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

func (r *Redactor) redactString(s string) string {
	for _, p := range r.patterns {
		s = p.ReplaceAllString(s, RedactedMarker)
	}
	return s
}

// walk descends decoded JSON, replacing values under sensitive field names
// and pattern hits inside free-form strings.
func (r *Redactor) walk(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			if r.sensitiveField(k) {
				val[k] = RedactedMarker
				continue
			}
			val[k] = r.walk(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = r.walk(inner)
		}
		return val
	case string:
		return r.redactString(val)
	default:
		return v
	}
}

// RedactBody sanitizes a captured body. JSON bodies are walked structurally;
// anything else gets the value patterns applied to the raw text.
func (r *Redactor) RedactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return r.redactString(string(body))
	}

	cleaned, err := json.Marshal(r.walk(decoded))
	if err != nil {
		return r.redactString(string(body))
	}
	return string(cleaned)
}

// RedactValue sanitizes a single header or query value by field name.
func (r *Redactor) RedactValue(name, value string) string {
	if r.sensitiveField(name) {
		return RedactedMarker
	}
	return r.redactString(value)
}
