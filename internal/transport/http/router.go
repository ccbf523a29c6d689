package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Khakverdiev/exam/internal/handlers"
	"github.com/Khakverdiev/exam/internal/middleware"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	AccountHandler *handlers.AccountHandler
	AdminHandler   *handlers.AdminHandler

	RevocationCheck *middleware.RevocationCheck
	SessionRefresh  *middleware.SessionRefresh
}

// Register wires the route table. The revocation check runs before the
// session refresh on every authed group: a blacklisted token must be
// rejected before renewal gets a chance to run.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api", d.RevocationCheck.Middleware)

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)

	account := api.Group("/account", d.SessionRefresh.Middleware)
	account.POST("/reset-password", d.AccountHandler.ResetPassword)
	account.POST("/confirmemail", d.AccountHandler.ConfirmEmail)

	// The validation link is followed from a mail client, no session.
	api.GET("/account/validateconfirmation", d.AccountHandler.ValidateConfirmation)

	admin := api.Group("/admin", d.SessionRefresh.Middleware)
	admin.POST("/update-role", d.AdminHandler.UpdateRole)
}
