package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sessionably/practice/internal/platform/apperr"
	"github.com/sessionably/practice/internal/platform/audit"
	"github.com/sessionably/practice/internal/platform/cache"
	"github.com/sessionably/practice/internal/platform/db"
	"github.com/sessionably/practice/internal/platform/metrics"
)

type Service struct {
	repo   Repository
	tx     db.TxRunner
	typing cache.TypingCache
	audit  audit.Writer
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, tx db.TxRunner, typing cache.TypingCache, aw audit.Writer, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		tx:     tx,
		typing: typing,
		audit:  aw,
		logger: logger.With().Str("component", "messaging").Logger(),
		now:    time.Now,
	}
}

// Conversation returns a page of the conversation, oldest first. The page is
// counted back from the newest message so offset 0 is the latest exchange.
func (s *Service) Conversation(ctx context.Context, v Viewer, clientID uuid.UUID, since time.Time, limit, offset int) (*Conversation, error) {
	name, err := s.clientName(ctx, clientID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.repo.List(ctx, Query{ClientID: clientID, Since: since, Limit: limit, Offset: offset, Newest: true})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if msgs == nil {
		msgs = []*Message{}
	}
	stats, err := s.repo.Stats(ctx, clientID, v.Side.Other())
	if err != nil {
		return nil, err
	}
	return &Conversation{ClientID: clientID, ClientName: name, Messages: msgs, Stats: *stats}, nil
}

// Poll returns messages newer than afterID, or than since when afterID is 0.
func (s *Service) Poll(ctx context.Context, v Viewer, clientID uuid.UUID, since time.Time, afterID int64) (*Poll, error) {
	if since.IsZero() && afterID <= 0 {
		return nil, apperr.Validation("since", `Either "since" timestamp or "last_message_id" is required`)
	}
	q := Query{ClientID: clientID, Limit: PollLimit}
	if afterID > 0 {
		q.AfterID = afterID
	} else {
		q.Since = since
	}
	serverTime := s.now()
	msgs, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*Message{}
	}
	stats, err := s.repo.Stats(ctx, clientID, v.Side.Other())
	if err != nil {
		return nil, err
	}
	return &Poll{
		NewMessages:    msgs,
		HasNewMessages: len(msgs) > 0,
		UnreadCount:    stats.UnreadCount,
		ServerTime:     unixSeconds(serverTime),
	}, nil
}

// SendInput is a new chat message.
type SendInput struct {
	Subject string
	Body    string
	Origin  audit.Entry
}

// Send stores a chat message from v and its audit row together, then clears
// the sender's typing indicator.
func (s *Service) Send(ctx context.Context, v Viewer, clientID uuid.UUID, in SendInput) (*Message, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, apperr.Validation("message", "Message content is required")
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = DefaultSubject
	}

	clientName, err := s.clientName(ctx, clientID)
	if err != nil {
		return nil, err
	}
	msg := &Message{
		ClientID:    clientID,
		Subject:     subject,
		Message:     body,
		MessageType: "chat",
		Priority:    "normal",
		SenderType:  v.Side,
		SenderID:    v.UserID,
		SenderName:  s.senderName(ctx, v, clientName),
	}
	if v.Side == SenderClient {
		msg.SenderID = clientID.String()
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Insert(ctx, msg); err != nil {
			return err
		}
		entry := in.Origin
		entry.UserID = msg.SenderID
		entry.UserType = userType(v.Side)
		entry.Action = "send_message"
		entry.EntityType = "client_message"
		entry.EntityID = itoa(msg.ID)
		return s.audit.Write(ctx, &entry)
	})
	if err != nil {
		return nil, apperr.Internal("send message", err)
	}
	metrics.MessagesSent.WithLabelValues(string(v.Side)).Inc()

	if err := s.typing.SetTyping(ctx, typingKey(clientID, v.Side), false); err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID.String()).Msg("failed to clear typing indicator")
	}
	return msg, nil
}

// SetTyping records whether v is typing in the conversation.
func (s *Service) SetTyping(ctx context.Context, v Viewer, clientID uuid.UUID, typing bool) error {
	if err := s.typing.SetTyping(ctx, typingKey(clientID, v.Side), typing); err != nil {
		return apperr.Unavailable("typing status unavailable", err)
	}
	return nil
}

// OtherTyping reports whether the other party is typing. A cache failure
// reads as not typing.
func (s *Service) OtherTyping(ctx context.Context, v Viewer, clientID uuid.UUID) bool {
	typing, err := s.typing.IsTyping(ctx, typingKey(clientID, v.Side.Other()))
	if err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID.String()).Msg("typing lookup failed")
		return false
	}
	return typing
}

// MarkRead marks messages from the other party as read.
func (s *Service) MarkRead(ctx context.Context, v Viewer, clientID uuid.UUID, ids []int64, all bool) (*ReadResult, error) {
	if !all && len(ids) == 0 {
		return nil, apperr.Validation("message_ids", "message_ids array is required, or set mark_all=true")
	}
	if all {
		ids = nil
	}
	changed, err := s.repo.MarkRead(ctx, clientID, v.Side.Other(), ids)
	if err != nil {
		return nil, err
	}
	if changed == nil {
		changed = []int64{}
	}
	return &ReadResult{MarkedCount: len(changed), MessageIDs: changed}, nil
}

func (s *Service) clientName(ctx context.Context, clientID uuid.UUID) (string, error) {
	name, err := s.repo.ClientName(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return "", apperr.NotFound("client")
	}
	return name, err
}

func (s *Service) senderName(ctx context.Context, v Viewer, clientName string) string {
	if v.Side == SenderClient {
		if clientName == "" {
			return "Client"
		}
		return clientName
	}
	name, err := s.repo.UserName(ctx, v.UserID)
	if err != nil || name == "" {
		return "Provider"
	}
	return name
}

func typingKey(clientID uuid.UUID, side SenderType) string {
	return string(side) + "_" + clientID.String()
}

func userType(side SenderType) string {
	if side == SenderClient {
		return audit.UserTypeClient
	}
	return audit.UserTypeClinician
}
