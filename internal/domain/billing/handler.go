package billing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sessionably/practice/internal/platform/apperr"
	"github.com/sessionably/practice/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/billing")
	g.POST("/payment-links", h.CreatePaymentLink, auth.RequireRole(auth.RoleClinician))
	g.GET("/invoices/:id/payment-link", h.GetPaymentLink)
}

func (h *Handler) CreatePaymentLink(c echo.Context) error {
	var req PaymentLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.CreatePaymentLink(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GetPaymentLink(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("id", "invalid invoice id")
	}
	inv, err := h.svc.PaymentLink(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !auth.CanAccessClient(c.Request().Context(), inv.ClientID.String()) {
		return apperr.Forbidden("access to this invoice is not permitted")
	}
	return c.JSON(http.StatusOK, inv)
}
