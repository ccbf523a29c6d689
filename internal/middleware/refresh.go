package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Khakverdiev/exam/internal/autherr"
	"github.com/Khakverdiev/exam/internal/handlers"
	"github.com/Khakverdiev/exam/internal/logging"
	"github.com/Khakverdiev/exam/internal/models"
	"github.com/Khakverdiev/exam/internal/repo"
	"github.com/Khakverdiev/exam/internal/tokens"
)

// SessionRefresh transparently renews expired access tokens from the
// refresh token before the route handler runs. It is a state machine
// over the two cookies:
//
//  1. neither token       -> pass through unauthenticated
//  2. access valid        -> self-heal identity cookies, pass
//  3. access dead, stored refresh matches and is live -> new access
//     cookie; the refresh token itself is rotated only when its own
//     expiry is inside the rotation window
//  4. refresh present but invalid -> clear the refresh cookie once,
//     401
//
// A token that fails signature validation for any reason is treated
// the same as an expired one: fail closed, never open.
type SessionRefresh struct {
	Repo   repo.UserRepo
	Issuer *tokens.Issuer

	// RefreshTTL is the lifetime of a rotated refresh token,
	// RotateWindow how close to expiry the stored token must be
	// before rotation kicks in.
	RefreshTTL   time.Duration
	RotateWindow time.Duration

	// refreshCleared makes the invalid-cookie delete idempotent
	// across repeated requests. Instance state, not a global, so
	// tests can build isolated middlewares.
	mu             sync.Mutex
	refreshCleared bool
}

func NewSessionRefresh(r repo.UserRepo, issuer *tokens.Issuer, refreshTTL time.Duration) *SessionRefresh {
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &SessionRefresh{
		Repo:         r,
		Issuer:       issuer,
		RefreshTTL:   refreshTTL,
		RotateWindow: 7 * 24 * time.Hour,
	}
}

func (m *SessionRefresh) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessToken := cookieValue(c, handlers.CookieAccessToken)
		refreshToken := cookieValue(c, handlers.CookieRefreshToken)

		if accessToken == "" && refreshToken == "" {
			return next(c)
		}

		if accessToken != "" {
			claims, err := m.Issuer.Parse(accessToken, true)
			if err == nil {
				m.ensureIdentityCookies(c, claims)
				setUserContext(c, claims)
				return next(c)
			}
			// Expired and malformed tokens take the same path from
			// here: try the refresh token.
		}

		if refreshToken == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}

		user, err := m.validateRefreshToken(c, refreshToken)
		if err != nil {
			m.clearRefreshCookieOnce(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}
		m.resetClearGuard()

		newAccess, accessExp, err := m.Issuer.IssueAccessToken(user)
		if err != nil {
			logging.FromContext(c.Request().Context()).Error("session refresh: issue access token", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		c.SetCookie(handlers.CreateCookie(handlers.CookieAccessToken, newAccess, "/", accessExp))

		claims, err := m.Issuer.Parse(newAccess, true)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		m.ensureIdentityCookies(c, claims)

		if time.Until(user.RefreshTokenExpiresAt) < m.RotateWindow {
			if err := m.rotateRefreshToken(c, user); err != nil {
				logging.FromContext(c.Request().Context()).Error("session refresh: rotate refresh token", "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}
		}

		setUserContext(c, claims)
		return next(c)
	}
}

func (m *SessionRefresh) validateRefreshToken(c echo.Context, refreshToken string) (*models.User, error) {
	ctx := c.Request().Context()
	user, err := m.Repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if time.Now().After(user.RefreshTokenExpiresAt) {
		return nil, autherr.ErrExpiredToken
	}
	return user, nil
}

func (m *SessionRefresh) rotateRefreshToken(c echo.Context, user *models.User) error {
	newRefresh := m.Issuer.NewRefreshToken()
	newExp := time.Now().Add(m.RefreshTTL)
	if err := m.Repo.SaveRefreshToken(c.Request().Context(), user.ID, newRefresh, newExp); err != nil {
		return err
	}
	c.SetCookie(handlers.CreateCookie(handlers.CookieRefreshToken, newRefresh, "/", newExp))
	return nil
}

// ensureIdentityCookies regenerates UserId/Username/Role from the
// token when any of them went missing client-side.
func (m *SessionRefresh) ensureIdentityCookies(c echo.Context, claims *tokens.AccessClaims) {
	if cookieValue(c, handlers.CookieUserID) != "" &&
		cookieValue(c, handlers.CookieUsername) != "" &&
		cookieValue(c, handlers.CookieRole) != "" {
		return
	}

	exp := time.Now().Add(handlers.IdentityCookieTTL)
	c.SetCookie(handlers.CreateCookie(handlers.CookieUserID, claims.Subject, "/", exp))
	c.SetCookie(handlers.CreateCookie(handlers.CookieUsername, claims.Username, "/", exp))
	c.SetCookie(handlers.CreateCookie(handlers.CookieRole, claims.Role, "/", exp))
}

func (m *SessionRefresh) clearRefreshCookieOnce(c echo.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshCleared {
		return
	}
	c.SetCookie(handlers.DeleteCookie(handlers.CookieRefreshToken, "/"))
	m.refreshCleared = true
	logging.FromContext(c.Request().Context()).Warn("invalid refresh token cleared")
}

// resetClearGuard re-arms the idempotent clear after a successful
// refresh, so a later invalid cookie gets cleared again.
func (m *SessionRefresh) resetClearGuard() {
	m.mu.Lock()
	m.refreshCleared = false
	m.mu.Unlock()
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set("user_id", claims.Subject)
	c.Set("username", claims.Username)
	c.Set("role", claims.Role)
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
