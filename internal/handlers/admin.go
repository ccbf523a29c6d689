package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Khakverdiev/exam/internal/service"
)

type AdminHandler struct {
	Admin *service.AdminService
}

// UpdateRole requires the appadmin role, checked from the role claim
// the session middleware put on the context.
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	role, _ := c.Get("role").(string)
	if role != service.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}

	var req struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	if err := h.Admin.UpdateRole(c.Request().Context(), req.UserID, req.Role); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role updated"})
}
