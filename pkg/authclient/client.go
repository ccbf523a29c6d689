// Package authclient is the Go counterpart of the browser session
// manager: it caches the token pair, attaches bearer credentials to
// outgoing calls, retries one refresh on a 401 and renews the access
// token shortly before it expires.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Session is the client-held mirror of the server's principal state.
// Never authoritative; always reconcilable via refresh.
type Session struct {
	UserID                 string    `json:"userId"`
	Username               string    `json:"username"`
	Role                   string    `json:"role"`
	AccessToken            string    `json:"accessToken"`
	RefreshToken           string    `json:"refreshToken"`
	RefreshTokenExpireTime time.Time `json:"refreshTokenExpireTime"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.RWMutex
	session Session

	// All concurrent 401s funnel into one network refresh.
	refreshGroup singleflight.Group

	// RenewInterval is how often the background loop wakes up,
	// RenewThreshold how close to expiry the access token may get
	// before it is renewed proactively.
	RenewInterval  time.Duration
	RenewThreshold time.Duration
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		RenewInterval:  5 * time.Minute,
		RenewThreshold: 60 * time.Second,
	}
}

// Session returns a copy of the current snapshot.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Login authenticates and swaps the whole snapshot in one step; no
// caller ever observes a half-updated session.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var s Session
	err := c.postJSON(ctx, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "", &s)
	if err != nil {
		return Session{}, err
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return s, nil
}

// Logout revokes the current access token server-side and clears the
// snapshot. The local state is dropped even if the server call fails;
// the tokens will die of natural causes.
func (c *Client) Logout(ctx context.Context) error {
	access := c.Session().AccessToken

	err := c.postJSON(ctx, "/api/auth/logout", struct{}{}, access, nil)

	c.mu.Lock()
	c.session = Session{}
	c.mu.Unlock()
	return err
}

// Refresh exchanges the cached refresh token for a new pair. Safe to
// call concurrently: simultaneous callers share a single network call
// and all see its outcome.
func (c *Client) Refresh(ctx context.Context) (Session, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		refresh := c.Session().RefreshToken
		if refresh == "" {
			return Session{}, fmt.Errorf("authclient: no refresh token")
		}

		var s Session
		if err := c.postJSON(ctx, "/api/auth/refresh", map[string]string{
			"refreshToken": refresh,
		}, "", &s); err != nil {
			return Session{}, err
		}

		c.mu.Lock()
		// Keep identity fields if the refresh response omits them.
		if s.Username == "" {
			s.Username = c.session.Username
		}
		if s.Role == "" {
			s.Role = c.session.Role
		}
		c.session = s
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return Session{}, err
	}
	return v.(Session), nil
}

// Run drives the proactive renewal loop: wake up every RenewInterval
// and refresh when the access token has less than RenewThreshold left.
// Cancel the context to stop; pending timers are simply dropped.
func (c *Client) Run(ctx context.Context) {
	ticker := time.NewTicker(c.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.NeedsRenewal(time.Now()) {
				_, _ = c.Refresh(ctx)
			}
		}
	}
}

// NeedsRenewal reports whether the cached access token expires within
// the renewal threshold of now. An unreadable token never triggers a
// renewal; the 401 path handles it.
func (c *Client) NeedsRenewal(now time.Time) bool {
	access := c.Session().AccessToken
	if access == "" {
		return false
	}
	exp, err := tokenExpiry(access)
	if err != nil {
		return false
	}
	return exp.Sub(now) <= c.RenewThreshold
}

func (c *Client) postJSON(ctx context.Context, path string, body any, bearer string, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("authclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("authclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("authclient: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authclient: %s failed with status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("authclient: decode response: %w", err)
		}
	}
	return nil
}
