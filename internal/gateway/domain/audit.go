package domain

import "time"

// DataClassification is the sensitivity level assigned to a request or
// response, derived from its path namespace and body content.
type DataClassification string

const (
	ClassificationPublic       DataClassification = "public"
	ClassificationInternal     DataClassification = "internal"
	ClassificationConfidential DataClassification = "confidential"
	ClassificationRestricted   DataClassification = "restricted"
)

// rank orders classifications from least to most sensitive.
func (c DataClassification) rank() int {
	switch c {
	case ClassificationInternal:
		return 1
	case ClassificationConfidential:
		return 2
	case ClassificationRestricted:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether c is at least as sensitive as other.
func (c DataClassification) AtLeast(other DataClassification) bool {
	return c.rank() >= other.rank()
}

// Max returns the more sensitive of the two classifications.
func (c DataClassification) Max(other DataClassification) DataClassification {
	if other.rank() > c.rank() {
		return other
	}
	return c
}

// ComplianceFlags marks which regulatory regimes an audit event touches.
type ComplianceFlags struct {
	PII   bool `json:"pii"`
	GDPR  bool `json:"gdpr"`
	PCI   bool `json:"pci"`
	HIPAA bool `json:"hipaa"`
}

// RequestContext is the sanitized snapshot of an inbound request.
// Headers, query and body are captured post-redaction and truncated at the
// configured cap before the snapshot is built.
type RequestContext struct {
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Query     map[string]string `json:"query,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      string            `json:"body,omitempty"`
	IPAddress string            `json:"ipAddress"`
	UserAgent string            `json:"userAgent,omitempty"`
	UserID    string            `json:"userId,omitempty"`
	Role      string            `json:"role,omitempty"`
}

// ResponseContext is the sanitized snapshot of the outbound response.
type ResponseContext struct {
	Status   int           `json:"status"`
	Duration time.Duration `json:"durationMs"`
	Body     string        `json:"body,omitempty"`
	Blocked  bool          `json:"blocked,omitempty"` // true when DLP replaced the body
}

// AuditEvent is the structured record emitted once per request-response
// pair. Immutable once emitted.
type AuditEvent struct {
	RequestID      string             `json:"requestId"`
	Timestamp      time.Time          `json:"timestamp"`
	Request        RequestContext     `json:"request"`
	Response       *ResponseContext   `json:"response,omitempty"`
	RiskScore      int                `json:"riskScore"` // 0..100
	SecurityFlags  []string           `json:"securityFlags,omitempty"`
	Classification DataClassification `json:"dataClassification"`
	Compliance     ComplianceFlags    `json:"complianceFlags"`
}
