package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/abuse"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/httpx"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/pkg/slogx"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
	ExpiresIn    int64  `json:"expiresIn"` // seconds
}

// HandleRefresh rotates a refresh token. The old token is single-use: it is
// revoked the moment rotation succeeds, and a replayed one takes its whole
// family down. Failed attempts feed the brute-force counter keyed by caller
// IP.
func (rt *Router) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	// Must mirror the key the lockout middleware checks against.
	key := abuse.ByIPAndPath(r)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		rt.BruteForce.RecordFailure(ctx, key)
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeInvalidToken, "refreshToken is required")
		return
	}

	pair, err := rt.Tokens.Rotate(ctx, req.RefreshToken)
	if err != nil {
		rt.BruteForce.RecordFailure(ctx, key)
		WriteTokenError(w, err)
		return
	}

	rt.BruteForce.RecordSuccess(ctx, key)
	slogx.FromContext(ctx).Info("refresh token rotated",
		"family", pair.Family,
		"version", pair.Version,
	)

	httpx.WriteJSON(w, http.StatusOK, refreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SessionID:    pair.SessionID,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	})
}
