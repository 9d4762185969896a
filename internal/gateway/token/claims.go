package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/idx"
)

// AccessClaims are the claims embedded in an access token. The subject
// duplicates UserID for standard JWT tooling; the custom fields are what the
// gateway actually consumes.
type AccessClaims struct {
	jwt.RegisteredClaims

	UserID     string `json:"userId"`
	Role       string `json:"role"`
	TelegramID string `json:"telegramId,omitempty"`
	SessionID  string `json:"sessionId"`
}

// RefreshClaims are the claims embedded in a refresh token. A family
// identifies a lineage of rotations; Version strictly increases on each
// rotation so a stale version reveals replay of an already-rotated token.
type RefreshClaims struct {
	jwt.RegisteredClaims

	UserID  string `json:"userId"`
	Family  string `json:"family"`
	Version int64  `json:"version"`
}

func newAccessClaims(u domain.User, sessionID, issuer, audience string, ttl time.Duration, now time.Time) AccessClaims {
	return AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        idx.New().String(),
		},
		UserID:     u.ID,
		Role:       string(u.Role),
		TelegramID: u.TelegramID,
		SessionID:  sessionID,
	}
}

func newRefreshClaims(userID, family string, version int64, issuer, audience string, ttl time.Duration, now time.Time) RefreshClaims {
	return RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        idx.New().String(),
		},
		UserID:  userID,
		Family:  family,
		Version: version,
	}
}
