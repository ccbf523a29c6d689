package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Khakverdiev/exam/internal/autherr"
	"github.com/Khakverdiev/exam/internal/service"
	"github.com/Khakverdiev/exam/internal/tokens"
)

type AuthHandler struct {
	Auth *service.AuthService
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.Username == "" || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and email are required")
	}
	if !service.ValidPassword(req.Password) {
		return httpError(autherr.ErrInvalidPasswordFormat)
	}

	user, err := h.Auth.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	info, err := h.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return httpError(err)
	}

	SetSessionCookies(c, info)
	return c.JSON(http.StatusOK, info)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token is missing")
	}

	info, err := h.Auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(CreateCookie(CookieAccessToken, info.AccessToken, "/", info.AccessTokenExpireTime))
	c.SetCookie(CreateCookie(CookieRefreshToken, info.RefreshToken, "/", info.RefreshTokenExpireTime))
	return c.JSON(http.StatusOK, info)
}

// Logout accepts the access token from the Authorization header, or
// from the cookie when the header is absent. The token may already be
// expired; identity is still read out of it.
func (h *AuthHandler) Logout(c echo.Context) error {
	accessToken, err := tokens.FromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		cookie, cErr := c.Cookie(CookieAccessToken)
		if cErr != nil || cookie.Value == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "access token is missing")
		}
		accessToken = cookie.Value
	}

	if err := h.Auth.Logout(c.Request().Context(), accessToken); err != nil {
		return httpError(err)
	}

	ClearSessionCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}
