package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Khakverdiev/exam/internal/blacklist"
	"github.com/Khakverdiev/exam/internal/handlers"
)

// RevocationCheck rejects requests carrying a blacklisted access token
// before any authentication runs. The cookie is authoritative here:
// the Authorization header may not be attached yet at this point in
// the chain. Revocation wins over renewal, so a revoked access token
// is a hard 403 even when a valid refresh token rides along.
type RevocationCheck struct {
	Blacklist *blacklist.Registry
}

func (m *RevocationCheck) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(handlers.CookieAccessToken)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			return next(c)
		}

		token := strings.TrimPrefix(cookie.Value, "Bearer ")
		if m.Blacklist.IsRevoked(token) {
			return echo.NewHTTPError(http.StatusForbidden, "token revoked")
		}

		return next(c)
	}
}
