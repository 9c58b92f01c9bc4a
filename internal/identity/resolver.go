// Package identity resolves bearer tokens to user ids against the external
// identity provider. This service never manages sessions itself.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shelf-works/shelf/internal/domain"
)

// Client resolves tokens by calling the provider's userinfo endpoint.
// Successful resolutions are cached briefly so hot clients do not hit the
// provider on every request.
type Client struct {
	userInfoURL string
	httpClient  *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	userID    string
	expiresAt time.Time
}

func NewClient(userInfoURL string) *Client {
	return &Client{
		userInfoURL: userInfoURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: make(map[string]cacheEntry),
		ttl:   time.Minute,
	}
}

type userInfoResponse struct {
	Sub string `json:"sub"`
	ID  string `json:"id"`
}

// ResolveToken returns the user id for a bearer token, or
// domain.ErrInvalidToken when the provider rejects it.
func (c *Client) ResolveToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidToken
	}

	c.mu.Lock()
	if entry, ok := c.cache[token]; ok && time.Now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.userID, nil
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", domain.ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode userinfo response: %w", err)
	}

	userID := info.Sub
	if userID == "" {
		userID = info.ID
	}
	if userID == "" {
		return "", domain.ErrInvalidToken
	}

	c.mu.Lock()
	c.cache[token] = cacheEntry{userID: userID, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return userID, nil
}

// StaticResolver accepts a fixed token for a fixed user. Local development
// and tests only.
type StaticResolver struct {
	Token  string
	UserID string
}

func (r *StaticResolver) ResolveToken(ctx context.Context, token string) (string, error) {
	if r.Token == "" || token != r.Token {
		return "", domain.ErrInvalidToken
	}
	return r.UserID, nil
}
