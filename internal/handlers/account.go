package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Khakverdiev/exam/internal/service"
	"github.com/Khakverdiev/exam/internal/tokens"
)

type AccountHandler struct {
	Account *service.AccountService
}

func (h *AccountHandler) ResetPassword(c echo.Context) error {
	accessToken, err := tokens.FromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "bearer token required")
	}

	var req struct {
		OldPassword        string `json:"oldPassword"`
		NewPassword        string `json:"newPassword"`
		ConfirmNewPassword string `json:"confirmNewPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	if err := h.Account.ResetPassword(c.Request().Context(), accessToken,
		req.OldPassword, req.NewPassword, req.ConfirmNewPassword); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password has been reset"})
}

func (h *AccountHandler) ConfirmEmail(c echo.Context) error {
	accessToken, err := tokens.FromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "bearer token required")
	}

	if err := h.Account.ConfirmEmail(c.Request().Context(), accessToken); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "confirmation link sent"})
}

func (h *AccountHandler) ValidateConfirmation(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	if err := h.Account.ValidateConfirmation(c.Request().Context(), token); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email confirmed successfully"})
}
