package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrGuestReadOnly      = errors.New("guest account is limited to read-only access")

	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("username or email already taken")
	ErrUserInactive      = errors.New("account is not confirmed yet")
	ErrEmailTaken        = errors.New("email address already in use")
	ErrNoPendingEmail    = errors.New("no email change is pending")

	ErrInvalidInput     = errors.New("invalid input data")
	ErrWeakPassword     = errors.New("password does not meet requirements")
	ErrPasswordMismatch = errors.New("passwords do not match")

	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")

	ErrOAuthSubjectLinked = errors.New("external account already linked to another user")
	ErrLastAuthMethod     = errors.New("cannot remove the only way to sign in")
	ErrOAuthUnavailable   = errors.New("identity provider is currently unavailable")
	ErrMailUnavailable    = errors.New("mail service is currently unavailable")
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
