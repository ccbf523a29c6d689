package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Khakverdiev/exam/internal/autherr"
)

// httpError translates service errors to transport codes at the
// boundary. Anything outside the known taxonomy becomes an opaque 500.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, autherr.ErrInvalidToken),
		errors.Is(err, autherr.ErrExpiredToken):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, autherr.ErrInvalidCredentials),
		errors.Is(err, autherr.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid username or password")
	case errors.Is(err, autherr.ErrUserExists):
		return echo.NewHTTPError(http.StatusBadRequest, "user already exists")
	case errors.Is(err, autherr.ErrPasswordMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, "passwords do not match")
	case errors.Is(err, autherr.ErrInvalidPasswordFormat):
		return echo.NewHTTPError(http.StatusBadRequest,
			"password must contain at least 8 characters, including one uppercase letter, one lowercase letter, one digit, and one special character (_*&%$#@)")
	case errors.Is(err, autherr.ErrEmailAlreadyConfirmed):
		return echo.NewHTTPError(http.StatusBadRequest, "email already confirmed")
	case errors.Is(err, autherr.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
