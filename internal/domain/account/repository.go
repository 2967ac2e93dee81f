package account

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines persistence for users and their profiles.
// Create takes both so a user can never exist without its profile,
// whichever code path created it.
type UserRepository interface {
	Create(ctx context.Context, user *User, profile *Profile) error
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	// GetByIdentifier resolves a username or an email in a single query.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// ProfileRepository defines persistence for user profiles.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Update(ctx context.Context, profile *Profile) error
}

// TokenRepository defines persistence for security tokens.
type TokenRepository interface {
	// Create returns ErrTokenExists when (token, salt) is already taken.
	Create(ctx context.Context, token *SecurityToken) error
	GetByTokenAndSalt(ctx context.Context, token, salt string) (*SecurityToken, error)
	MarkExpired(ctx context.Context, tokenID uuid.UUID) error
	Delete(ctx context.Context, tokenID uuid.UUID) error
}

// OAuthRepository defines persistence for external identity links.
type OAuthRepository interface {
	Create(ctx context.Context, link *OAuthLink) error
	GetByProviderID(ctx context.Context, provider, providerID string) (*OAuthLink, error)
	GetByUser(ctx context.Context, userID uuid.UUID) ([]*OAuthLink, error)
	Delete(ctx context.Context, userID uuid.UUID, provider string) error
}
