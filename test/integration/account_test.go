//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sessionably/practice/internal/domain/account"
	"github.com/sessionably/practice/internal/domain/subscription"
	"github.com/sessionably/practice/internal/platform/db"
)

func newUser(name string) *account.NewUser {
	return &account.NewUser{
		Username:             name,
		Email:                name + "@example.com",
		PasswordHash:         "hash",
		FullName:             "Ada Shaw",
		Role:                 "admin",
		Plan:                 subscription.PlanProfessional,
		Addon:                subscription.AddonAINotes,
		Status:               string(subscription.StatusTrialing),
		StripeCustomerID:     "cus_test",
		StripeSubscriptionID: "sub_test",
	}
}

func TestAccountRepo(t *testing.T) {
	ctx := context.Background()
	repo := account.NewRepoPG(globalPool)
	name := uniqueName("ada")

	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	u, err := repo.CreateUser(ctx, newUser(name))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == uuid.Nil || u.Role != "admin" {
		t.Errorf("unexpected user: %+v", u)
	}

	t.Run("Exists", func(t *testing.T) {
		if ok, err := repo.UsernameExists(ctx, name); err != nil || !ok {
			t.Errorf("UsernameExists = %v, %v", ok, err)
		}
		if ok, err := repo.EmailExists(ctx, name+"@EXAMPLE.com"); err != nil || !ok {
			t.Errorf("EmailExists should be case-insensitive, got %v, %v", ok, err)
		}
		if ok, _ := repo.UsernameExists(ctx, uniqueName("nobody")); ok {
			t.Error("expected unknown username to be free")
		}
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		dup := newUser(name)
		dup.Email = uniqueName("other") + "@example.com"
		if _, err := repo.CreateUser(ctx, dup); !errors.Is(err, account.ErrUsernameTaken) {
			t.Errorf("expected ErrUsernameTaken, got %v", err)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		dup := newUser(uniqueName("other"))
		dup.Email = name + "@example.com"
		if _, err := repo.CreateUser(ctx, dup); !errors.Is(err, account.ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("SubscriptionView", func(t *testing.T) {
		a, err := subscription.NewRepoPG(globalPool).GetAccount(ctx, u.ID)
		if err != nil {
			t.Fatalf("get account: %v", err)
		}
		if a.Plan != subscription.PlanProfessional || a.Addon != subscription.AddonAINotes || a.Status != subscription.StatusTrialing {
			t.Errorf("unexpected subscription: %+v", a)
		}
	})
}

func TestAccountRepo_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := account.NewRepoPG(globalPool)
	tx := db.NewTxRunner(globalPool)
	name := uniqueName("rollback")

	err := tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := repo.CreateUser(ctx, newUser(name))
		if err != nil {
			return err
		}
		if err := repo.CreatePracticeSettings(ctx, &account.PracticeSettings{UserID: u.ID, Name: "First"}); err != nil {
			return err
		}
		// practice_settings.user_id is unique.
		return repo.CreatePracticeSettings(ctx, &account.PracticeSettings{UserID: u.ID, Name: "Second"})
	})
	if err == nil {
		t.Fatal("expected the second settings insert to fail")
	}

	exists, err := repo.UsernameExists(ctx, name)
	if err != nil {
		t.Fatalf("username exists: %v", err)
	}
	if exists {
		t.Error("expected user insert to be rolled back")
	}
}
