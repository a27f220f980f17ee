package messaging

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SenderType identifies which side of a conversation wrote a message.
type SenderType string

const (
	SenderClient   SenderType = "client"
	SenderProvider SenderType = "provider"
)

// Other returns the opposite side of the conversation.
func (s SenderType) Other() SenderType {
	if s == SenderClient {
		return SenderProvider
	}
	return SenderClient
}

const (
	DefaultSubject = "Message"
	PollLimit      = 50
)

// Message is one row of client_messages.
type Message struct {
	ID                int64      `json:"id"`
	ClientID          uuid.UUID  `json:"client_id"`
	Subject           string     `json:"subject"`
	Message           string     `json:"message"`
	MessageType       string     `json:"message_type"`
	Priority          string     `json:"priority"`
	IsRead            bool       `json:"is_read"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
	SenderType        SenderType `json:"sender_type"`
	SenderID          string     `json:"sender_id"`
	SenderName        string     `json:"sender_name"`
	RelatedEntityType string     `json:"related_entity_type,omitempty"`
	RelatedEntityID   string     `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Stats summarises a conversation from the viewer's side.
type Stats struct {
	TotalMessages int        `json:"total_messages"`
	UnreadCount   int        `json:"unread_count"`
	LastMessageAt *time.Time `json:"last_message_at"`
}

// Viewer is the authenticated party reading or writing a conversation.
type Viewer struct {
	UserID string
	Side   SenderType
}

type Conversation struct {
	ClientID   uuid.UUID  `json:"client_id"`
	ClientName string     `json:"client_name"`
	Messages   []*Message `json:"messages"`
	Stats      Stats      `json:"stats"`
}

type Poll struct {
	NewMessages    []*Message `json:"new_messages"`
	HasNewMessages bool       `json:"has_new_messages"`
	UnreadCount    int        `json:"unread_count"`
	ServerTime     float64    `json:"server_time"`
}

type ReadResult struct {
	MarkedCount int     `json:"marked_count"`
	MessageIDs  []int64 `json:"message_ids"`
}

// ParseSince accepts RFC 3339 or Unix seconds, optionally fractional.
func ParseSince(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC(), true
}

// unixSeconds is the poll clock value clients echo back as since.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
