package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionably/practice/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	var (
		a       = Account{UserID: userID}
		addon   *string
		trialAt *time.Time
	)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT subscription_plan_id, subscription_status, selected_addon, trial_ends_at
		FROM users WHERE id = $1 AND is_active`, userID).
		Scan(&a.Plan, &a.Status, &addon, &trialAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Addon = AddonNone
	if addon != nil {
		if parsed, ok := ParseAddon(*addon); ok {
			a.Addon = parsed
		}
	}
	a.TrialEndsAt = trialAt
	return &a, nil
}

func (r *repoPG) SetAddon(ctx context.Context, userID uuid.UUID, addon Addon) error {
	var value *string
	if addon != AddonNone && addon != "" {
		s := string(addon)
		value = &s
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE users SET selected_addon = $2, updated_at = NOW() WHERE id = $1`, userID, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
