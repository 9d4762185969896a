package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/cache"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/cryptox"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/idx"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

// UserLookup is the narrow view of the platform user store the gateway
// needs: a live read for the role-change and session-validity checks.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
}

// Pair is what rotation and login issuance return.
type Pair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	Family       string
	Version      int64
	ExpiresIn    time.Duration
}

// Authority issues and verifies the platform's signed tokens and owns the
// revocation list. Access and refresh tokens are signed with distinct
// symmetric secrets so a leaked refresh secret cannot mint access tokens.
type Authority struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration

	Cache cache.Store
	Users UserLookup
	FP    *cryptox.Fingerprinter
}

// IssueAccessToken signs access claims for the user. The token carries the
// user's role at issue time; verification cross-checks it against the live
// record so a demoted user cannot ride out a stale claim.
func (a *Authority) IssueAccessToken(u domain.User, sessionID string) (string, error) {
	claims := newAccessClaims(u, sessionID, a.Issuer, a.Audience, a.AccessTTL, time.Now())
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs refresh claims for an existing family lineage.
func (a *Authority) IssueRefreshToken(userID, family string, version int64) (string, error) {
	claims := newRefreshClaims(userID, family, version, a.Issuer, a.Audience, a.RefreshTTL, time.Now())
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// IssuePair starts a fresh session: new session id, new token family at
// version 1. The family's high-water mark is seeded in the cache so the
// first rotation can detect replay.
func (a *Authority) IssuePair(ctx context.Context, u domain.User) (*Pair, error) {
	sessionID := idx.New().String()
	family := idx.New().String()

	access, err := a.IssueAccessToken(u, sessionID)
	if err != nil {
		return nil, err
	}
	refresh, err := a.IssueRefreshToken(u.ID, family, 1)
	if err != nil {
		return nil, err
	}

	if _, err := a.Cache.Incr(ctx, cache.FamilyKey(family), a.RefreshTTL); err != nil {
		// Without the high-water mark replay detection is blind for this
		// family; refuse to hand out the pair.
		return nil, fmt.Errorf("seed token family: %w", err)
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sessionID,
		Family:       family,
		Version:      1,
		ExpiresIn:    a.AccessTTL,
	}, nil
}

// VerifyAccessToken validates a raw access token and returns its claims.
//
// Order matters: the revocation list is consulted before any signature work.
// A revoked-but-well-signed token must not even reach the parser, both to
// avoid wasted CPU and to close the timing side-channel where such tokens
// briefly look valid.
func (a *Authority) VerifyAccessToken(ctx context.Context, raw string) (*AccessClaims, error) {
	if raw == "" {
		return nil, ErrMissing
	}

	if err := a.checkRevoked(ctx, raw); err != nil {
		return nil, err
	}

	claims := &AccessClaims{}
	if err := a.parse(raw, claims, a.AccessSecret); err != nil {
		return nil, err
	}

	// Live cross-checks. Fail closed when the user store cannot answer:
	// operating on stale privilege is the worse failure mode.
	u, err := a.Users.GetUser(ctx, claims.UserID)
	if err != nil {
		slogx.FromContext(ctx).Error("user lookup failed during verify", "error", err, "user_id", claims.UserID)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !u.IsActive {
		return nil, ErrSessionStale
	}
	if string(u.Role) != claims.Role {
		return nil, ErrRoleChanged
	}

	return claims, nil
}

// Blacklist revokes a still-valid token for the remainder of its natural
// lifetime. The entry's TTL mirrors the token's own expiry so no revocation
// record outlives what it revokes.
func (a *Authority) Blacklist(ctx context.Context, raw, reason string) error {
	ttl := a.remainingLifetime(raw)

	key := cache.BlacklistKey(a.FP.Fingerprint(raw))
	if err := a.Cache.Set(ctx, key, reason, ttl); err != nil {
		// Security state is fail-closed: a revocation must never be
		// silently dropped. The Failover store already degraded to memory;
		// if even that failed, surface it.
		return fmt.Errorf("write revocation: %w", err)
	}
	return nil
}

// Rotate implements single-use refresh tokens. The old token is verified,
// revoked, and replaced by a new pair whose version is bumped within the
// same family. Presenting a stale version means the lineage was already
// rotated (token replay), which revokes the entire family.
func (a *Authority) Rotate(ctx context.Context, rawRefresh string) (*Pair, error) {
	if rawRefresh == "" {
		return nil, ErrMissing
	}
	log := slogx.FromContext(ctx)

	if err := a.checkRevoked(ctx, rawRefresh); err != nil {
		return nil, err
	}

	claims := &RefreshClaims{}
	if err := a.parse(rawRefresh, claims, a.RefreshSecret); err != nil {
		return nil, err
	}

	revoked, err := a.Cache.Exists(ctx, cache.FamilyRevokedKey(claims.Family))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	u, err := a.Users.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !u.IsActive {
		return nil, ErrSessionStale
	}

	// Atomically bump the family high-water mark. Every rotation of version
	// v must land on v+1; any other observation means this token was already
	// rotated (replay) or two rotations raced, and either way the lineage is
	// no longer trustworthy.
	next, err := a.Cache.Incr(ctx, cache.FamilyKey(claims.Family), a.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if next != claims.Version+1 {
		log.Warn("refresh token replay detected, revoking family",
			"family", claims.Family, "presented_version", claims.Version, "high_water", next-1)
		a.revokeFamily(ctx, claims.Family)
		_ = a.Blacklist(ctx, rawRefresh, "replay")
		return nil, ErrRevoked
	}

	// Single use: the old refresh token dies the moment it rotates.
	if err := a.Blacklist(ctx, rawRefresh, "rotated"); err != nil {
		return nil, err
	}

	sessionID := idx.New().String()
	access, err := a.IssueAccessToken(u, sessionID)
	if err != nil {
		return nil, err
	}
	refresh, err := a.IssueRefreshToken(u.ID, claims.Family, next)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sessionID,
		Family:       claims.Family,
		Version:      next,
		ExpiresIn:    a.AccessTTL,
	}, nil
}

// RevokeFamily invalidates every outstanding refresh token in a family,
// e.g. after a password reset or detected replay.
func (a *Authority) RevokeFamily(ctx context.Context, family string) {
	a.revokeFamily(ctx, family)
}

func (a *Authority) revokeFamily(ctx context.Context, family string) {
	if err := a.Cache.Set(ctx, cache.FamilyRevokedKey(family), "revoked", a.RefreshTTL); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke token family", "error", err, "family", family)
	}
}

// checkRevoked consults the revocation list. Reachability failures are
// authoritative-path failures: unverifiable means denied.
func (a *Authority) checkRevoked(ctx context.Context, raw string) error {
	revoked, err := a.Cache.Exists(ctx, cache.BlacklistKey(a.FP.Fingerprint(raw)))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if revoked {
		return ErrRevoked
	}
	return nil
}

// parse verifies signature and registered claims, mapping library errors to
// the package's tagged failure reasons.
func (a *Authority) parse(raw string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.Issuer),
		jwt.WithAudience(a.Audience),
		jwt.WithLeeway(a.Leeway),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}

// remainingLifetime reads exp from the token without verifying it. The
// fingerprint is of the raw string, so an attacker feeding garbage here only
// wastes a cache entry. Unreadable tokens get the full access TTL.
func (a *Authority) remainingLifetime(raw string) time.Duration {
	const floor = time.Second

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil || claims.ExpiresAt == nil {
		return a.AccessTTL
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < floor {
		return floor
	}
	return ttl
}
