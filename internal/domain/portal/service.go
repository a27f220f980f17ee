package portal

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sessionably/practice/internal/domain/notify"
	"github.com/sessionably/practice/internal/platform/apperr"
	"github.com/sessionably/practice/internal/platform/audit"
	"github.com/sessionably/practice/internal/platform/db"
)

const passwordCost = 10

// Notifier sends a named notification template to a client.
type Notifier interface {
	SendTemplate(ctx context.Context, clientID uuid.UUID, name string, data notify.Data, opts notify.SendOptions) (*notify.SendResult, error)
}

type Service struct {
	repo      Repository
	tx        db.TxRunner
	prefs     notify.PreferenceStore
	audit     audit.Writer
	notifier  Notifier
	portalURL string
	logger    zerolog.Logger
	cost      int
}

func NewService(repo Repository, tx db.TxRunner, prefs notify.PreferenceStore, aw audit.Writer,
	notifier Notifier, portalURL string, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		tx:        tx,
		prefs:     prefs,
		audit:     aw,
		notifier:  notifier,
		portalURL: strings.TrimRight(portalURL, "/"),
		logger:    logger.With().Str("component", "portal").Logger(),
		cost:      passwordCost,
	}
}

// Register creates an unverified portal login for a client. The login, the
// client's default contact preferences and the audit row are written
// together; the verification email is sent afterwards and may fail without
// undoing the registration.
func (s *Service) Register(ctx context.Context, req *RegisterRequest, origin audit.Entry) (*Registration, error) {
	clientID, err := req.Validate()
	if err != nil {
		return nil, err
	}

	client, err := s.repo.GetClient(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("client")
	}
	if err != nil {
		return nil, err
	}
	if client.Email != "" && !strings.EqualFold(client.Email, req.Email) {
		return nil, apperr.Validation("email", "Email does not match client record")
	}

	exists, err := s.repo.AccountExists(ctx, clientID, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("An account already exists for this client or email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	user := &ClientUser{
		ClientID:          clientID,
		Email:             req.Email,
		PasswordHash:      string(hash),
		VerificationToken: uuid.NewString(),
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateClientUser(ctx, user); err != nil {
			return err
		}
		if err := s.prefs.InsertDefaultPreferences(ctx, clientID); err != nil {
			return err
		}
		entry := origin
		entry.UserID = clientID.String()
		entry.UserType = audit.UserTypeClient
		entry.Action = "register"
		entry.EntityType = "client_user"
		entry.EntityID = user.ID.String()
		return s.audit.Write(ctx, &entry)
	})
	if errors.Is(err, ErrAccountExists) {
		return nil, apperr.Conflict("An account already exists for this client or email")
	}
	if err != nil {
		return nil, apperr.Internal("Unable to create portal account", err)
	}

	s.logger.Info().Str("client_id", clientID.String()).Str("client_user_id", user.ID.String()).
		Msg("portal account registered")

	s.sendVerification(ctx, client, user)

	return &Registration{
		ClientUserID:         user.ID,
		ClientID:             clientID,
		Email:                user.Email,
		RequiresVerification: true,
		Message:              "Account created successfully. Please check your email to verify your account.",
	}, nil
}

func (s *Service) sendVerification(ctx context.Context, client *Client, user *ClientUser) {
	if s.notifier == nil {
		return
	}
	res, err := s.notifier.SendTemplate(context.WithoutCancel(ctx), client.ID, notify.TemplatePortalVerification,
		notify.Data{
			"verification_url": s.VerificationURL(user.VerificationToken),
			"client_name":      client.Name(),
		},
		notify.SendOptions{
			Channels: []notify.Channel{notify.ChannelEmail},
			Urgent:   true,
			Contact:  &notify.Contact{Name: client.Name(), Email: user.Email},
			Related:  &notify.RelatedEntity{Type: "client_user", ID: user.ID.String()},
		})
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("client_id", client.ID.String()).Msg("verification email failed")
	case !res.Outcome.Success:
		s.logger.Warn().Str("client_id", client.ID.String()).Str("reason", res.Outcome.Message).
			Msg("verification email not delivered")
	}
}

// VerificationURL is the portal link that confirms token.
func (s *Service) VerificationURL(token string) string {
	return s.portalURL + "?verify=" + url.QueryEscape(token)
}
