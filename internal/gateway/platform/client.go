// Package platform is the gateway's client for the storefront platform's
// internal API. It supplies the two lookups the gateway cannot answer on its
// own: live user records and store membership.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/domain"
)

// ErrNotFound is returned when the platform has no record for the requested
// user or store.
var ErrNotFound = errors.New("platform: not found")

// Client calls the platform's internal endpoints. Requests authenticate with
// a shared service key; the internal API is never exposed to the public edge.
type Client struct {
	BaseURL    string
	ServiceKey string
	HTTPClient *http.Client
}

// New creates a platform client with a sane default timeout.
func New(baseURL, serviceKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		ServiceKey: serviceKey,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type userResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	TelegramID string `json:"telegramId"`
	IsActive   bool   `json:"isActive"`
	CreatedAt  string `json:"createdAt"`
}

type membershipResponse struct {
	Owner  bool `json:"owner"`
	Admin  bool `json:"admin"`
	Vendor bool `json:"vendor"`

	CustomRole *struct {
		Name        string   `json:"name"`
		Permissions []string `json:"permissions"`
	} `json:"customRole"`

	Permissions []string `json:"permissions"`
}

// GetUser fetches the live user record for userID.
func (c *Client) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var resp userResponse
	if err := c.get(ctx, "/internal/users/"+url.PathEscape(userID), &resp); err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:         resp.ID,
		Username:   resp.Username,
		Role:       domain.Role(resp.Role),
		TelegramID: resp.TelegramID,
		IsActive:   resp.IsActive,
	}
	if resp.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, resp.CreatedAt); err == nil {
			u.CreatedAt = ts
		}
	}
	return u, nil
}

// ResolveMembership fetches the (user, store) relation. A user with no
// relation to the store gets an empty membership, not an error.
func (c *Client) ResolveMembership(ctx context.Context, userID, storeID string) (domain.Membership, error) {
	path := "/internal/stores/" + url.PathEscape(storeID) + "/members/" + url.PathEscape(userID)

	var resp membershipResponse
	if err := c.get(ctx, path, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Membership{}, nil
		}
		return domain.Membership{}, err
	}

	m := domain.Membership{
		OwnerOf:  resp.Owner,
		AdminOf:  resp.Admin,
		VendorOf: resp.Vendor,
	}
	if resp.CustomRole != nil {
		m.CustomRole = &domain.CustomRole{
			Name:        resp.CustomRole.Name,
			Permissions: toPermissions(resp.CustomRole.Permissions),
		}
	}
	m.InlinePermissions = toPermissions(resp.Permissions)
	return m, nil
}

// Ping checks that the internal API is reachable and the service key is
// accepted.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.get(ctx, "/internal/health", &resp)
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Key", c.ServiceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("platform: %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func toPermissions(names []string) []domain.Permission {
	if len(names) == 0 {
		return nil
	}
	perms := make([]domain.Permission, 0, len(names))
	for _, n := range names {
		perms = append(perms, domain.Permission(n))
	}
	return perms
}
