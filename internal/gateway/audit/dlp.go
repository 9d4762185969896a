package audit

import (
	"bytes"
	"net/http"
	"regexp"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
)

// leakPattern is one outbound-content rule the DLP scanner enforces.
type leakPattern struct {
	name    string
	pattern *regexp.Regexp
}

// Direct-leak patterns: content that must never leave the gateway in a
// response body no matter what endpoint produced it.
var leakPatterns = []leakPattern{
	{"private_key", regexp.MustCompile(`-----BEGIN[ A-Z]*PRIVATE KEY-----`)},
	{"certificate", regexp.MustCompile(`-----BEGIN CERTIFICATE-----`)},
	{"aws_access_key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"credential_field", regexp.MustCompile(`(?i)"(password|secret|private_key|api_key|apikey)"\s*:\s*"[^"]{4,}"`)},
	{"card_number", regexp.MustCompile(`\b(?:4\d{3}|5[1-5]\d{2}|3[47]\d{2}|6011)[ -]?\d{4}[ -]?\d{4}[ -]?\d{2,4}\b`)},
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
}

// Scanner decides whether an outgoing response body may be flushed.
type Scanner struct{}

// Scan returns the names of every leak pattern the body matches, plus the
// content classification the body itself implies.
func (Scanner) Scan(body []byte) (matches []string, class domain.DataClassification) {
	class = domain.ClassificationPublic
	for _, lp := range leakPatterns {
		if lp.pattern.Match(body) {
			matches = append(matches, lp.name)
			class = domain.ClassificationRestricted
		}
	}
	return matches, class
}

// interceptor buffers the response so the DLP check runs before anything
// reaches the wire. Handlers write into the buffer; Flush performs the scan
// and either forwards the original response or substitutes the policy-block
// payload.
type interceptor struct {
	rw     http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func newInterceptor(rw http.ResponseWriter) *interceptor {
	return &interceptor{rw: rw, status: http.StatusOK}
}

func (i *interceptor) Header() http.Header { return i.rw.Header() }

func (i *interceptor) WriteHeader(status int) {
	i.status = status
}

func (i *interceptor) Write(p []byte) (int, error) {
	return i.buf.Write(p)
}
