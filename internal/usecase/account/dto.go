package account

import (
	"time"

	domainAccount "account-service/internal/domain/account"
	"account-service/pkg/utils"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Username        string `json:"username" validate:"required,username"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"required,min=1,max=25"`
	LastName        string `json:"last_name" validate:"required,min=1,max=25"`
}

type LoginRequest struct {
	// Identifier accepts a username or an email address.
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type ChangeEmailRequest struct {
	NewEmail string `json:"new_email" validate:"required,email"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=25"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=25"`
	Bio       *string `json:"bio" validate:"omitempty,max=200"`
	Avatar    *string `json:"avatar" validate:"omitempty,max=250"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Active       bool      `json:"active"`
	PendingEmail *string   `json:"pending_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type ProfileResponse struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	Avatar    string `json:"avatar"`
}

type SettingsResponse struct {
	User          *UserResponse `json:"user"`
	PasswordLogin bool          `json:"password_login"`
	Providers     []string      `json:"linked_providers"`
}

type AuthResponse struct {
	User         *UserResponse `json:"user"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresAt    int64         `json:"expires_at"`
}

func ToUserResponse(u *domainAccount.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Active:       u.Active,
		PendingEmail: u.PendingEmail,
		CreatedAt:    u.CreatedAt,
	}
}

func toAuthResponse(u *domainAccount.User, pair *utils.TokenPair) *AuthResponse {
	return &AuthResponse{
		User:         ToUserResponse(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}
}
