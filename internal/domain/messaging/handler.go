package messaging

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sessionably/practice/internal/platform/apperr"
	"github.com/sessionably/practice/internal/platform/audit"
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
	g := api.Group("/messages/:clientId")
	g.GET("", h.Conversation)
	g.POST("", h.Send)
	g.GET("/poll", h.Poll)
	g.GET("/typing", h.GetTyping)
	g.POST("/typing", h.SetTyping)
	g.POST("/read", h.MarkRead)
}

type sendRequest struct {
	Message string `json:"message"`
	Subject string `json:"subject"`
}

type typingRequest struct {
	IsTyping bool `json:"is_typing"`
}

type readRequest struct {
	MessageIDs []int64 `json:"message_ids"`
	MarkAll    bool    `json:"mark_all"`
}

type conversationResponse struct {
	*Conversation
	Pagination pagination.Page `json:"pagination"`
}

func (h *Handler) Conversation(c echo.Context) error {
	clientID, v, err := target(c)
	if err != nil {
		return err
	}
	since, err := sinceParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	conv, err := h.svc.Conversation(c.Request().Context(), v, clientID, since, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conversationResponse{
		Conversation: conv,
		Pagination:   pagination.NewPage(conv.Stats.TotalMessages, pg.Limit, pg.Offset),
	})
}

func (h *Handler) Poll(c echo.Context) error {
	clientID, v, err := target(c)
	if err != nil {
		return err
	}
	since, err := sinceParam(c)
	if err != nil {
		return err
	}
	var afterID int64
	if raw := c.QueryParam("last_message_id"); raw != "" {
		afterID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || afterID < 0 {
			return apperr.Validation("last_message_id", "last_message_id must be a positive integer")
		}
	}
	poll, err := h.svc.Poll(c.Request().Context(), v, clientID, since, afterID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, poll)
}

func (h *Handler) Send(c echo.Context) error {
	clientID, v, err := target(c)
	if err != nil {
		return err
	}
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	msg, err := h.svc.Send(c.Request().Context(), v, clientID, SendInput{
		Subject: req.Subject,
		Body:    req.Message,
		Origin:  audit.FromRequest(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *Handler) SetTyping(c echo.Context) error {
	clientID, v, err := target(c)
	if err != nil {
		return err
	}
	var req typingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.SetTyping(c.Request().Context(), v, clientID, req.IsTyping); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"is_typing": req.IsTyping})
}

func (h *Handler) GetTyping(c echo.Context) error {
	clientID, v, err := target(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"client_id": clientID,
		"is_typing": h.svc.OtherTyping(c.Request().Context(), v, clientID),
	})
}

func (h *Handler) MarkRead(c echo.Context) error {
	clientID, v, err := target(c)
	if err != nil {
		return err
	}
	var req readRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.MarkRead(c.Request().Context(), v, clientID, req.MessageIDs, req.MarkAll)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// target parses :clientId, checks access and identifies the caller's side.
func target(c echo.Context) (uuid.UUID, Viewer, error) {
	id, err := uuid.Parse(c.Param("clientId"))
	if err != nil {
		return uuid.Nil, Viewer{}, apperr.Validation("clientId", "invalid client id")
	}
	ctx := c.Request().Context()
	if !auth.CanAccessClient(ctx, id.String()) {
		return uuid.Nil, Viewer{}, apperr.Forbidden("access to this client is not permitted")
	}
	v := Viewer{UserID: auth.UserIDFromContext(ctx), Side: SenderProvider}
	if auth.RoleFromContext(ctx) == auth.RoleClient {
		v.Side = SenderClient
	}
	return id, v, nil
}

func sinceParam(c echo.Context) (time.Time, error) {
	raw := c.QueryParam("since")
	if raw == "" {
		return time.Time{}, nil
	}
	t, ok := ParseSince(raw)
	if !ok {
		return time.Time{}, apperr.Validation("since", "since must be a Unix timestamp or RFC 3339 time")
	}
	return t, nil
}
