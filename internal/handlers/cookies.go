package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Khakverdiev/exam/internal/service"
)

// Cookie names shared with the SPA clients.
const (
	CookieAccessToken  = "AccessToken"
	CookieRefreshToken = "RefreshToken"
	CookieUserID       = "UserId"
	CookieUsername     = "Username"
	CookieRole         = "Role"
)

// IdentityCookieTTL bounds the advisory UserId/Username/Role cookies.
// They self-heal from the access token, so a short TTL is fine.
const IdentityCookieTTL = 24 * time.Hour

// CreateCookie builds a session cookie. HttpOnly is off: the browser
// client reads the access token's expiry to schedule proactive renewal,
// which script access to the cookie is what makes possible.
func CreateCookie(name, value, path string, expTime time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		HttpOnly: false,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

func DeleteCookie(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: false,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// SetSessionCookies mirrors a fresh token pair plus identity fields
// into the five session cookies.
func SetSessionCookies(c echo.Context, info *service.AccessInfo) {
	now := time.Now()
	c.SetCookie(CreateCookie(CookieAccessToken, info.AccessToken, "/", info.AccessTokenExpireTime))
	c.SetCookie(CreateCookie(CookieRefreshToken, info.RefreshToken, "/", info.RefreshTokenExpireTime))
	c.SetCookie(CreateCookie(CookieUserID, info.UserID, "/", now.Add(IdentityCookieTTL)))
	c.SetCookie(CreateCookie(CookieUsername, info.Username, "/", now.Add(IdentityCookieTTL)))
	c.SetCookie(CreateCookie(CookieRole, info.Role, "/", now.Add(IdentityCookieTTL)))
}

func ClearSessionCookies(c echo.Context) {
	for _, name := range []string{CookieAccessToken, CookieRefreshToken, CookieUserID, CookieUsername, CookieRole} {
		c.SetCookie(DeleteCookie(name, "/"))
	}
}
