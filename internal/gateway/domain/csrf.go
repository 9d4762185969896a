package domain

import "time"

// CSRFToken is the stored record for an issued CSRF token. The raw token
// value lives only with the client; the cache is keyed by its fingerprint.
type CSRFToken struct {
	OwnerUserID    string    `json:"ownerUserId,omitempty"`
	OwnerSessionID string    `json:"ownerSessionId,omitempty"`
	IPAddress      string    `json:"ipAddress"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}
