package subscription

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sessionably/practice/internal/platform/apperr"
)

// AccessResult is a decision together with the subscription it was made
// against.
type AccessResult struct {
	Feature Feature `json:"feature"`
	Decision
	Subscription *Account `json:"subscription"`
}

type Service struct {
	repo   Repository
	cache  Cache
	logger zerolog.Logger
}

// NewService builds the service. cache may be nil.
func NewService(repo Repository, cache Cache, logger zerolog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger.With().Str("component", "subscription").Logger()}
}

func (s *Service) Plans() []PlanInfo { return Catalog() }

// Account reads through the cache.
func (s *Service) Account(ctx context.Context, userID uuid.UUID) (*Account, error) {
	if s.cache != nil {
		a, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Msg("subscription cache read failed")
		}
		if a != nil {
			return a, nil
		}
	}

	a, err := s.repo.GetAccount(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("subscription")
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, a); err != nil {
			s.logger.Warn().Err(err).Msg("subscription cache write failed")
		}
	}
	return a, nil
}

func (s *Service) Access(ctx context.Context, userID uuid.UUID, feature Feature) (*AccessResult, error) {
	a, err := s.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AccessResult{
		Feature:      feature,
		Decision:     CheckAccess(a.Plan, a.Status, a.Addon, feature),
		Subscription: a,
	}, nil
}

func (s *Service) UpgradeOptions(ctx context.Context, userID uuid.UUID, feature Feature) ([]UpgradeOption, error) {
	if _, ok := features[feature]; !ok {
		return nil, apperr.Validation("feature", "unknown feature: "+string(feature))
	}
	a, err := s.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	return UpgradeOptions(a.Plan, a.Addon, feature), nil
}

// SelectAddon sets the professional plan's addon.
func (s *Service) SelectAddon(ctx context.Context, userID uuid.UUID, addon Addon) (*Account, error) {
	if addon != AddonAINotes && addon != AddonTelehealth {
		return nil, apperr.Validation("add_on", "add_on must be \"ai_notes\" or \"telehealth\"")
	}
	a, err := s.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	if a.Plan != PlanProfessional {
		return nil, apperr.Forbidden("Addon selection is only available for Professional plan subscribers")
	}

	if err := s.repo.SetAddon(ctx, userID, addon); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("subscription")
		}
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Msg("subscription cache invalidation failed")
		}
	}

	updated := *a
	updated.Addon = addon
	return &updated, nil
}
