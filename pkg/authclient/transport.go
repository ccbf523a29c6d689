package authclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Transport wraps a RoundTripper so every request carries the current
// access token. A 401 triggers at most one refresh-and-replay per
// request; concurrent 401s still cause a single network refresh via
// the client's singleflight group.
type Transport struct {
	Client *Client
	Base   http.RoundTripper
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base().RoundTrip(t.withBearer(req))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// One retry per original request. Replaying needs a rewindable
	// body; without GetBody the 401 is passed through untouched.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	if _, refreshErr := t.Client.Refresh(req.Context()); refreshErr != nil {
		return resp, nil
	}
	resp.Body.Close()

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, fmt.Errorf("authclient: rewind request body: %w", bodyErr)
		}
		retry.Body = body
	}

	return t.base().RoundTrip(t.withBearer(retry))
}

func (t *Transport) withBearer(req *http.Request) *http.Request {
	access := t.Client.Session().AccessToken
	if access == "" {
		return req
	}
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+access)
	return out
}

// tokenExpiry reads the exp claim without verifying the signature.
// The client has no signing key and does not need one; the server
// re-validates everything anyway.
func tokenExpiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("authclient: token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}
