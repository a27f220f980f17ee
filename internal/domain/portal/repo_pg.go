package portal

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionably/practice/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	var c Client
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, first_name, last_name, COALESCE(email, '')
		FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) AccountExists(ctx context.Context, clientID uuid.UUID, email string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM client_users WHERE client_id = $1 OR email = $2)`,
		clientID, email).Scan(&exists)
	return exists, err
}

func (r *repoPG) CreateClientUser(ctx context.Context, u *ClientUser) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO client_users (client_id, email, password_hash, verification_token, email_verified, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id, created_at`,
		u.ClientID, u.Email, u.PasswordHash, u.VerificationToken, u.EmailVerified,
	).Scan(&u.ID, &u.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrAccountExists
	}
	return err
}
