package notes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sessionably/practice/internal/domain/subscription"
)

type Handler struct {
	svc    *Service
	access *subscription.Service
}

// NewHandler gates generation on the caller's plan via access.
func NewHandler(svc *Service, access *subscription.Service) *Handler {
	return &Handler{svc: svc, access: access}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/notes/generate", h.Generate,
		subscription.RequireFeature(h.access, subscription.FeatureAIClinicalNotes))
}

func (h *Handler) Generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Generate(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
