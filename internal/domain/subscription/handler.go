package subscription

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
	api.GET("/subscription/plans", h.ListPlans)

	g := api.Group("/subscription", auth.RequireRole(auth.RoleClinician))
	g.GET("/access", h.CheckAccess)
	g.GET("/upgrade-options", h.UpgradeOptions)
	g.PUT("/addon", h.SelectAddon)
}

func (h *Handler) ListPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"plans": h.svc.Plans()})
}

func (h *Handler) CheckAccess(c echo.Context) error {
	feature, err := featureParam(c)
	if err != nil {
		return err
	}
	userID, err := subjectUser(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Access(c.Request().Context(), userID, feature)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) UpgradeOptions(c echo.Context) error {
	feature, err := featureParam(c)
	if err != nil {
		return err
	}
	userID, err := subjectUser(c)
	if err != nil {
		return err
	}
	opts, err := h.svc.UpgradeOptions(c.Request().Context(), userID, feature)
	if err != nil {
		return err
	}
	if opts == nil {
		opts = []UpgradeOption{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"feature": feature, "options": opts})
}

type addonRequest struct {
	Addon string `json:"add_on"`
}

func (h *Handler) SelectAddon(c echo.Context) error {
	var req addonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.SelectAddon(c.Request().Context(), userID, Addon(req.Addon))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// RequireFeature blocks callers whose subscription does not grant feature.
// The 403 body carries the full decision so clients can offer the upgrade.
func RequireFeature(svc *Service, feature Feature) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := callerID(c)
			if err != nil {
				return err
			}
			res, err := svc.Access(c.Request().Context(), userID, feature)
			if err != nil {
				return err
			}
			if !res.Allowed {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"error":    res.Message,
					"code":     string(apperr.KindForbidden),
					"decision": res.Decision,
				})
			}
			return next(c)
		}
	}
}

func featureParam(c echo.Context) (Feature, error) {
	f := c.QueryParam("feature")
	if f == "" {
		return "", apperr.Validation("feature", "feature is required")
	}
	return Feature(f), nil
}

// subjectUser is the user_id query parameter when given, otherwise the
// caller.
func subjectUser(c echo.Context) (uuid.UUID, error) {
	if raw := c.QueryParam("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, apperr.Validation("user_id", "user_id must be a UUID")
		}
		return id, nil
	}
	return callerID(c)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, apperr.Forbidden("a practice account is required")
	}
	return id, nil
}
