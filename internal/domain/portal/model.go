package portal

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sessionably/practice/internal/platform/apperr"
)

const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterRequest creates a portal login for an existing client.
type RegisterRequest struct {
	ClientID string `json:"client_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate normalizes the email and returns the parsed client id.
func (r *RegisterRequest) Validate() (uuid.UUID, error) {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.ClientID == "" || r.Email == "" || r.Password == "" {
		return uuid.Nil, apperr.Validation("", "Client ID, email, and password are required")
	}
	if len(r.Password) < MinPasswordLength {
		return uuid.Nil, apperr.Validation("password", "Password must be at least 8 characters long")
	}
	if !emailPattern.MatchString(r.Email) {
		return uuid.Nil, apperr.Validation("email", "Invalid email format")
	}
	id, err := uuid.Parse(r.ClientID)
	if err != nil {
		return uuid.Nil, apperr.Validation("client_id", "client_id must be a valid UUID")
	}
	return id, nil
}

// Client is the subset of the clients row registration needs.
type Client struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
}

func (c *Client) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ClientUser is a portal login.
type ClientUser struct {
	ID                uuid.UUID
	ClientID          uuid.UUID
	Email             string
	PasswordHash      string
	VerificationToken string
	EmailVerified     bool
	CreatedAt         time.Time
}

type Registration struct {
	ClientUserID         uuid.UUID `json:"client_user_id"`
	ClientID             uuid.UUID `json:"client_id"`
	Email                string    `json:"email"`
	RequiresVerification bool      `json:"requires_verification"`
	Message              string    `json:"message"`
}
