package account

import (
	"time"

	"github.com/google/uuid"
)

// Token salts partition security tokens into purpose families. A token
// minted for one flow never verifies under another salt, even if the raw
// random value were to collide.
const (
	SaltAccountConfirm = "account-confirm"
	SaltResetPassword  = "reset-password"
	SaltChangeEmail    = "change-email"
)

// User represents a user account.
type User struct {
	ID            uuid.UUID
	Username      string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	Active        bool
	PendingEmail  *string
	PasswordLogin bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SessionIdentity is the capability a session layer needs from a user.
type SessionIdentity interface {
	Identity() uuid.UUID
	IsActive() bool
}

func (u *User) Identity() uuid.UUID {
	return u.ID
}

func (u *User) IsActive() bool {
	return u.Active
}

// EmailChangePending reports whether an email change awaits confirmation.
func (u *User) EmailChangePending() bool {
	return u.PendingEmail != nil && *u.PendingEmail != ""
}

// Profile holds the public-facing details of a user. Every user has
// exactly one profile from the moment creation completes.
type Profile struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Bio       string
	Avatar    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SecurityToken is a purpose-salted, single-use, time-limited token.
type SecurityToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	Salt      string
	Expired   bool
	CreatedAt time.Time
}

// ExpiresAt returns the instant the token crosses its validity window.
func (t *SecurityToken) ExpiresAt(ttl time.Duration) time.Time {
	return t.CreatedAt.Add(ttl)
}

// OAuthLink associates an external identity-provider subject with a user.
// A given subject links to at most one local account.
type OAuthLink struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Provider   string
	ProviderID string
	CreatedAt  time.Time
}
