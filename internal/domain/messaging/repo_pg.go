package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionably/practice/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const messageCols = `id, client_id, subject, message, message_type, priority, is_read, read_at,
	sender_type, sender_id, sender_name,
	COALESCE(related_entity_type, ''), COALESCE(related_entity_id, ''), created_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ClientID, &m.Subject, &m.Message, &m.MessageType, &m.Priority,
		&m.IsRead, &m.ReadAt, &m.SenderType, &m.SenderID, &m.SenderName,
		&m.RelatedEntityType, &m.RelatedEntityID, &m.CreatedAt)
	return &m, err
}

func (r *repoPG) ClientName(ctx context.Context, clientID uuid.UUID) (string, error) {
	var name string
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT first_name || ' ' || last_name FROM clients WHERE id = $1`, clientID).Scan(&name)
	if db.IsNoRows(err) {
		return "", ErrNotFound
	}
	return name, err
}

func (r *repoPG) UserName(ctx context.Context, userID string) (string, error) {
	var name string
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT full_name FROM users WHERE id::text = $1`, userID).Scan(&name)
	if db.IsNoRows(err) {
		return "", ErrNotFound
	}
	return name, err
}

func (r *repoPG) List(ctx context.Context, q Query) ([]*Message, error) {
	where := []string{"client_id = $1"}
	args := []any{q.ClientID}
	if !q.Since.IsZero() {
		args = append(args, q.Since)
		where = append(where, fmt.Sprintf("created_at > $%d", len(args)))
	}
	if q.AfterID > 0 {
		args = append(args, q.AfterID)
		where = append(where, fmt.Sprintf("id > $%d", len(args)))
	}
	order := "created_at ASC, id ASC"
	if q.Newest {
		order = "created_at DESC, id DESC"
	}
	args = append(args, q.Limit, q.Offset)
	sql := fmt.Sprintf(`SELECT %s FROM client_messages WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		messageCols, strings.Join(where, " AND "), order, len(args)-1, len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context, clientID uuid.UUID, unreadFrom SenderType) (*Stats, error) {
	var s Stats
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE NOT is_read AND sender_type = $2),
			MAX(created_at)
		FROM client_messages WHERE client_id = $1`,
		clientID, string(unreadFrom)).Scan(&s.TotalMessages, &s.UnreadCount, &s.LastMessageAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Insert(ctx context.Context, m *Message) error {
	var related, relatedID *string
	if m.RelatedEntityType != "" {
		related, relatedID = &m.RelatedEntityType, &m.RelatedEntityID
	}
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO client_messages (client_id, subject, message, message_type, priority,
			sender_type, sender_id, sender_name, related_entity_type, related_entity_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, is_read, created_at`,
		m.ClientID, m.Subject, m.Message, m.MessageType, m.Priority,
		string(m.SenderType), m.SenderID, m.SenderName, related, relatedID,
	).Scan(&m.ID, &m.IsRead, &m.CreatedAt)
}

func (r *repoPG) MarkRead(ctx context.Context, clientID uuid.UUID, from SenderType, ids []int64) ([]int64, error) {
	sql := `UPDATE client_messages SET is_read = TRUE, read_at = NOW()
		WHERE client_id = $1 AND sender_type = $2 AND NOT is_read`
	args := []any{clientID, string(from)}
	if len(ids) > 0 {
		sql += ` AND id = ANY($3)`
		args = append(args, ids)
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql+` RETURNING id`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
