package portal

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sessionably/practice/internal/platform/audit"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public portal endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/portal/register", h.Register)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	reg, err := h.svc.Register(c.Request().Context(), &req, audit.FromRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, reg)
}
