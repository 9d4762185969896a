// Package csrf issues and validates anti-forgery tokens. Raw tokens live
// only with the client; the cache holds a record keyed by the token's keyed
// fingerprint so a cache dump never yields usable tokens.
package csrf

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/cache"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/cryptox"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

var (
	ErrMissing       = errors.New("csrf: token missing")
	ErrInvalid       = errors.New("csrf: token unknown or expired")
	ErrOwnerMismatch = errors.New("csrf: token issued to a different session")
	ErrIPMismatch    = errors.New("csrf: token issued to a different address")
)

// DefaultCookieName is the cookie the token travels in unless configured
// otherwise; the matching request header is X-CSRF-Token.
const DefaultCookieName = "csrf_token"

const tokenBytes = 32

// Service issues and validates CSRF tokens against the shared cache.
type Service struct {
	Cache cache.Store
	FP    *cryptox.Fingerprinter

	// TTL bounds a token's validity.
	TTL time.Duration
	// StrictIP rejects validation from a different client address than the
	// token was issued to. Lenient deployments (mobile carriers rotate
	// addresses mid-session) log the mismatch instead.
	StrictIP bool
	// CookieName overrides DefaultCookieName.
	CookieName string
}

func (s *Service) Cookie() string {
	if s.CookieName != "" {
		return s.CookieName
	}
	return DefaultCookieName
}

// Issue creates a token bound to the caller's identity and address.
// Persistence failure is returned: a token the client holds but the cache
// doesn't would only ever validate as invalid.
func (s *Service) Issue(ctx context.Context, userID, sessionID, ip string) (string, error) {
	token, err := cryptox.GenerateToken(tokenBytes)
	if err != nil {
		return "", err
	}

	now := time.Now()
	record := domain.CSRFToken{
		OwnerUserID:    userID,
		OwnerSessionID: sessionID,
		IPAddress:      ip,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.TTL),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return "", err
	}

	key := cache.CSRFKey(s.FP.Fingerprint(token))
	if err := s.Cache.Set(ctx, key, string(raw), s.TTL); err != nil {
		return "", err
	}
	return token, nil
}

// Validate checks a presented token against its stored record. The cache
// TTL enforces expiry; owner and session must match the presenting caller.
func (s *Service) Validate(ctx context.Context, token, userID, sessionID, ip string) error {
	if token == "" {
		return ErrMissing
	}

	raw, err := s.Cache.Get(ctx, cache.CSRFKey(s.FP.Fingerprint(token)))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return ErrInvalid
		}
		return err
	}

	var record domain.CSRFToken
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return ErrInvalid
	}

	if record.OwnerUserID != userID || record.OwnerSessionID != sessionID {
		return ErrOwnerMismatch
	}

	if record.IPAddress != ip {
		if s.StrictIP {
			return ErrIPMismatch
		}
		slogx.FromContext(ctx).Warn("csrf token presented from a new address",
			"issued_to", record.IPAddress,
			"presented_from", ip,
			"user_id", userID,
		)
	}

	return nil
}

// Revoke discards a token, e.g. on logout.
func (s *Service) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.Cache.Delete(ctx, cache.CSRFKey(s.FP.Fingerprint(token))); err != nil {
		slogx.FromContext(ctx).Warn("csrf revoke failed", "error", err)
	}
}
