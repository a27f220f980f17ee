package notify

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sessionably/practice/internal/platform/apperr"
	"github.com/sessionably/practice/internal/platform/auth"
	"github.com/sessionably/practice/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/clients/:clientId/notification-preferences", h.GetPreferences)
	api.PUT("/clients/:clientId/notification-preferences", h.UpdatePreferences)
	api.GET("/clients/:clientId/notifications", h.ListLog)

	clinician := api.Group("/notifications", auth.RequireRole(auth.RoleClinician))
	clinician.POST("/send", h.Send)
	clinician.POST("/preview", h.Preview)
	clinician.GET("/templates", h.ListTemplates)
}

type sendRequest struct {
	ClientID string         `json:"client_id"`
	Template string         `json:"template"`
	Data     Data           `json:"data"`
	Related  *RelatedEntity `json:"related_entity"`
	Channels []Channel      `json:"channels"`
}

type previewRequest struct {
	ClientID string `json:"client_id"`
	Template string `json:"template"`
	Data     Data   `json:"data"`
}

func (h *Handler) GetPreferences(c echo.Context) error {
	clientID, err := clientParam(c)
	if err != nil {
		return err
	}
	view, err := h.svc.GetPreferences(c.Request().Context(), clientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) UpdatePreferences(c echo.Context) error {
	clientID, err := clientParam(c)
	if err != nil {
		return err
	}
	var p ContactPreferences
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.ClientID = clientID
	if err := h.svc.UpdatePreferences(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PreferencesView{ContactPreferences: &p})
}

func (h *Handler) ListLog(c echo.Context) error {
	clientID, err := clientParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLog(c.Request().Context(), clientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*LogEntry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Send(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Template == "" {
		return apperr.Validation("template", "template is required")
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return apperr.Validation("client_id", "client_id must be a UUID")
	}
	for _, ch := range req.Channels {
		if ch != ChannelEmail && ch != ChannelSMS {
			return apperr.Validation("channels", "channels may only contain \"email\" and \"sms\"")
		}
	}

	res, err := h.svc.SendTemplate(c.Request().Context(), clientID, req.Template, req.Data, SendOptions{
		Related:  req.Related,
		Channels: req.Channels,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Preview(c echo.Context) error {
	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Template == "" {
		return apperr.Validation("template", "template is required")
	}
	clientID := uuid.Nil
	if req.ClientID != "" {
		id, err := uuid.Parse(req.ClientID)
		if err != nil {
			return apperr.Validation("client_id", "client_id must be a UUID")
		}
		clientID = id
	}
	rendered, err := h.svc.Render(c.Request().Context(), req.Template, req.Data, clientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rendered)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"templates": h.svc.Renderer().Names()})
}

// clientParam parses :clientId and checks that the caller may act on it.
func clientParam(c echo.Context) (uuid.UUID, error) {
	raw := c.Param("clientId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("clientId", "invalid client id")
	}
	if !auth.CanAccessClient(c.Request().Context(), id.String()) {
		return uuid.Nil, apperr.Forbidden("access to this client is not permitted")
	}
	return id, nil
}
