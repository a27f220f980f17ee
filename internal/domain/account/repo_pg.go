package account

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionably/practice/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *repoPG) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func (r *repoPG) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

func (r *repoPG) CreateUser(ctx context.Context, u *NewUser) (*User, error) {
	var addon *string
	if u.Addon != "" && u.Addon != "none" {
		s := string(u.Addon)
		addon = &s
	}
	out := &User{}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, full_name, role,
			subscription_plan_id, selected_addon, subscription_status,
			stripe_customer_id, stripe_subscription_id, trial_ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, username, email, full_name, role`,
		u.Username, u.Email, u.PasswordHash, u.FullName, u.Role,
		string(u.Plan), addon, u.Status,
		u.StripeCustomerID, u.StripeSubscriptionID, u.TrialEndsAt,
	).Scan(&out.ID, &out.Username, &out.Email, &out.FullName, &out.Role)
	if db.IsUniqueViolation(err) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "email") {
			return nil, ErrEmailTaken
		}
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repoPG) CreatePracticeSettings(ctx context.Context, s *PracticeSettings) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO practice_settings (user_id, practice_name, practice_phone, practice_email, provider_license)
		VALUES ($1, $2, $3, $4, $5)`,
		s.UserID, s.Name, s.Phone, s.Email, s.License)
	return err
}
