package account

import (
	"context"
	"errors"
	"fmt"

	"account-service/internal/config"
	domainAccount "account-service/internal/domain/account"
	"account-service/internal/logger"
	appErrors "account-service/pkg/errors"
	"account-service/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mailer delivers the account-lifecycle emails.
type Mailer interface {
	SendAccountConfirmation(ctx context.Context, recipient, username, link string) error
	SendPasswordReset(ctx context.Context, recipient, username, link string) error
	SendEmailChangeConfirmation(ctx context.Context, recipient, username, link string) error
}

// Service implements the account lifecycle use cases
type Service struct {
	users    domainAccount.UserRepository
	profiles domainAccount.ProfileRepository
	links    domainAccount.OAuthRepository
	tokens   *TokenService
	mail     Mailer
	config   *config.Config
}

// NewService creates a new account service
func NewService(
	users domainAccount.UserRepository,
	profiles domainAccount.ProfileRepository,
	links domainAccount.OAuthRepository,
	tokens *TokenService,
	mail Mailer,
	cfg *config.Config,
) *Service {
	return &Service{
		users:    users,
		profiles: profiles,
		links:    links,
		tokens:   tokens,
		mail:     mail,
		config:   cfg,
	}
}

// Register creates an unconfirmed user with its profile and mails an
// account-confirmation link.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*UserResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.NewAppError("WEAK_PASSWORD", err.Error(), nil)
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		logger.Warn("Registration attempt with existing username",
			zap.String("username", req.Username),
			zap.String("event", "registration_failed_duplicate_username"),
		)
		return nil, appErrors.ErrUserAlreadyExists
	} else if !errors.Is(err, domainAccount.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing username: %w", err)
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		logger.Warn("Registration attempt with existing email",
			zap.String("email", req.Email),
			zap.String("event", "registration_failed_duplicate_email"),
		)
		return nil, appErrors.ErrUserAlreadyExists
	} else if !errors.Is(err, domainAccount.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domainAccount.User{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hashedPassword,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Active:        false,
		PasswordLogin: true,
	}

	if err := s.users.Create(ctx, user, &domainAccount.Profile{}); err != nil {
		if errors.Is(err, domainAccount.ErrUserAlreadyExists) {
			return nil, appErrors.ErrUserAlreadyExists
		}
		return nil, err
	}

	logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("event", "user_registered"),
	)

	if err := s.sendConfirmation(ctx, user); err != nil {
		return nil, err
	}

	return ToUserResponse(user), nil
}

// ConfirmAccount consumes an account-confirm token and activates the user.
func (s *Service) ConfirmAccount(ctx context.Context, rawToken string) error {
	token, err := s.tokens.Verify(ctx, rawToken, domainAccount.SaltAccountConfirm)
	if err != nil {
		return err
	}

	if err := s.tokens.Consume(ctx, token); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			return appErrors.ErrUserNotFound
		}
		return err
	}

	user.Active = true
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	logger.Info("Account confirmed",
		zap.String("user_id", user.ID.String()),
		zap.String("event", "account_confirmed"),
	)

	return nil
}

// Login authenticates by username or email. An unconfirmed account is
// refused, but gets a fresh confirmation email instead of a dead end.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	user, err := s.Authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		return nil, err
	}

	if !user.Active {
		logger.Warn("Login attempt for unconfirmed account",
			zap.String("user_id", user.ID.String()),
			zap.String("event", "login_failed_unconfirmed"),
		)
		if err := s.sendConfirmation(ctx, user); err != nil {
			logger.Error("Failed to resend confirmation", zap.Error(err))
		}
		return nil, appErrors.ErrUserInactive
	}

	pair, err := s.generateSession(user)
	if err != nil {
		return nil, err
	}

	logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("event", "login_success"),
	)

	return toAuthResponse(user, pair), nil
}

// Authenticate resolves a username or email and checks the password.
// Both an unknown identifier and a wrong password fail with the same
// error, and the unknown-identifier path still pays for a hash so the
// two cannot be told apart by timing.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*domainAccount.User, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			_, _ = utils.HashPassword(password)
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.CheckPassword(user.PasswordHash, password) {
		logger.Warn("Login attempt with invalid password",
			zap.String("user_id", user.ID.String()),
			zap.String("event", "login_failed_invalid_password"),
		)
		return nil, appErrors.ErrInvalidCredentials
	}

	return user, nil
}

// GuestLogin signs in the shared read-only guest account.
func (s *Service) GuestLogin(ctx context.Context) (*AuthResponse, error) {
	user, err := s.users.GetByUsername(ctx, s.config.GuestUser.Username)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			return nil, fmt.Errorf("guest account is not provisioned")
		}
		return nil, err
	}

	pair, err := s.generateSession(user)
	if err != nil {
		return nil, err
	}

	logger.Info("Guest logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("event", "guest_login"),
	)

	return toAuthResponse(user, pair), nil
}

// RefreshSession exchanges a valid refresh token for a new token pair.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*utils.TokenPair, error) {
	claims, err := utils.ValidateRefreshToken(refreshToken, s.config.JWT.Secret)
	if err != nil {
		logger.Warn("Session refresh with invalid token",
			zap.String("event", "session_refresh_failed"),
			zap.Error(err),
		)
		return nil, appErrors.ErrInvalidToken
	}

	// A deleted or deactivated account must not mint fresh sessions.
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.ErrInvalidToken
	}
	if !user.Active {
		return nil, appErrors.ErrUserInactive
	}

	return s.generateSession(user)
}

// ForgotPassword mails a reset link. The response is identical whether
// or not the address belongs to an account.
func (s *Service) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			logger.Info("Password reset requested for unknown email",
				zap.String("event", "password_reset_unknown_email"),
			)
			return nil
		}
		return fmt.Errorf("failed to retrieve user: %w", err)
	}

	raw, err := s.tokens.Issue(ctx, user.ID, domainAccount.SaltResetPassword)
	if err != nil {
		return err
	}

	link := s.tokenLink("/api/v1/account/password/reset", raw)
	if err := s.mail.SendPasswordReset(ctx, user.Email, user.Username, link); err != nil {
		return err
	}

	logger.Info("Password reset token issued",
		zap.String("user_id", user.ID.String()),
		zap.String("event", "password_reset_token_issued"),
	)

	return nil
}

// ResetPassword consumes a reset token and applies the new password.
// The token is burned before the password is written, so a failure on
// the write leaves the token unusable rather than replayable.
func (s *Service) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return appErrors.NewAppError("WEAK_PASSWORD", err.Error(), nil)
	}

	token, err := s.tokens.Verify(ctx, req.Token, domainAccount.SaltResetPassword)
	if err != nil {
		logger.Warn("Password reset with invalid token",
			zap.String("event", "password_reset_failed_invalid_token"),
		)
		return err
	}

	if err := s.tokens.Consume(ctx, token); err != nil {
		return err
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, token.UserID, hashedPassword); err != nil {
		return err
	}

	logger.Info("Password reset",
		zap.String("user_id", token.UserID.String()),
		zap.String("event", "password_reset_success"),
	)

	return nil
}

// ChangePassword replaces the password of a logged-in user after
// verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return appErrors.NewAppError("WEAK_PASSWORD", err.Error(), nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			return appErrors.ErrUserNotFound
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.OldPassword) {
		logger.Warn("Password change with invalid old password",
			zap.String("user_id", user.ID.String()),
			zap.String("event", "password_change_failed"),
		)
		return appErrors.ErrInvalidCredentials
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return err
	}

	logger.Info("Password changed",
		zap.String("user_id", user.ID.String()),
		zap.String("event", "password_change_success"),
	)

	return nil
}

// RequestEmailChange records the new address as pending and mails a
// confirmation link to it. The current address stays authoritative
// until the link is followed.
func (s *Service) RequestEmailChange(ctx context.Context, userID uuid.UUID, req *ChangeEmailRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			return appErrors.ErrUserNotFound
		}
		return err
	}

	if req.NewEmail == user.Email {
		return appErrors.NewAppError("VALIDATION_ERROR", "New email matches the current one", nil)
	}

	if _, err := s.users.GetByEmail(ctx, req.NewEmail); err == nil {
		return appErrors.ErrEmailTaken
	} else if !errors.Is(err, domainAccount.ErrUserNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	user.PendingEmail = &req.NewEmail
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	raw, err := s.tokens.Issue(ctx, user.ID, domainAccount.SaltChangeEmail)
	if err != nil {
		return err
	}

	link := s.tokenLink("/api/v1/account/email/confirm", raw)
	if err := s.mail.SendEmailChangeConfirmation(ctx, req.NewEmail, user.Username, link); err != nil {
		return err
	}

	logger.Info("Email change requested",
		zap.String("user_id", user.ID.String()),
		zap.String("event", "email_change_requested"),
	)

	return nil
}

// ConfirmEmailChange consumes a change-email token and promotes the
// pending address to the account email.
func (s *Service) ConfirmEmailChange(ctx context.Context, rawToken string) error {
	token, err := s.tokens.Verify(ctx, rawToken, domainAccount.SaltChangeEmail)
	if err != nil {
		return err
	}

	if err := s.tokens.Consume(ctx, token); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			return appErrors.ErrUserNotFound
		}
		return err
	}

	if !user.EmailChangePending() {
		return appErrors.ErrNoPendingEmail
	}

	user.Email = *user.PendingEmail
	user.PendingEmail = nil
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, domainAccount.ErrUserAlreadyExists) {
			return appErrors.ErrEmailTaken
		}
		return err
	}

	logger.Info("Email change confirmed",
		zap.String("user_id", user.ID.String()),
		zap.String("event", "email_change_confirmed"),
	)

	return nil
}

// GetProfile returns the profile view of a user.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return toProfileResponse(user, profile), nil
}

// UpdateProfile edits name, bio and avatar reference.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*ProfileResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil || req.LastName != nil {
		if req.FirstName != nil {
			user.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			user.LastName = *req.LastName
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	if req.Bio != nil || req.Avatar != nil {
		if req.Bio != nil {
			profile.Bio = *req.Bio
		}
		if req.Avatar != nil {
			profile.Avatar = *req.Avatar
		}
		if err := s.profiles.Update(ctx, profile); err != nil {
			return nil, err
		}
	}

	return toProfileResponse(user, profile), nil
}

// GetSettings returns the account settings view, including linked
// identity providers.
func (s *Service) GetSettings(ctx context.Context, userID uuid.UUID) (*SettingsResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}

	links, err := s.links.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	providers := make([]string, len(links))
	for i, link := range links {
		providers[i] = link.Provider
	}

	return &SettingsResponse{
		User:          ToUserResponse(user),
		PasswordLogin: user.PasswordLogin,
		Providers:     providers,
	}, nil
}

// DeleteAccount removes the user and everything it owns. The current
// password must be re-entered; a hijacked session alone cannot destroy
// an account.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID, req *DeleteAccountRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			return appErrors.ErrUserNotFound
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		logger.Warn("Account deletion with invalid password",
			zap.String("user_id", user.ID.String()),
			zap.String("event", "account_deletion_failed"),
		)
		return appErrors.ErrInvalidCredentials
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	logger.Info("Account deleted",
		zap.String("user_id", userID.String()),
		zap.String("event", "account_deleted"),
	)

	return nil
}

// EnsureGuestUser provisions the shared guest account at startup when
// it does not exist yet.
func (s *Service) EnsureGuestUser(ctx context.Context) error {
	cfg := s.config.GuestUser
	if cfg.Username == "" || cfg.Password == "" {
		logger.Info("Guest account not configured, skipping provisioning")
		return nil
	}

	if _, err := s.users.GetByUsername(ctx, cfg.Username); err == nil {
		return nil
	} else if !errors.Is(err, domainAccount.ErrUserNotFound) {
		return err
	}

	hashedPassword, err := utils.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash guest password: %w", err)
	}

	guest := &domainAccount.User{
		Username:      cfg.Username,
		Email:         cfg.Email,
		PasswordHash:  hashedPassword,
		FirstName:     "Guest",
		LastName:      "User",
		Active:        true,
		PasswordLogin: true,
	}

	if err := s.users.Create(ctx, guest, &domainAccount.Profile{Bio: "Shared demo account."}); err != nil {
		return err
	}

	logger.Info("Guest account provisioned",
		zap.String("user_id", guest.ID.String()),
		zap.String("event", "guest_provisioned"),
	)

	return nil
}

// IssueSession mints a session token pair for an already-authenticated
// user, such as one arriving from the OAuth callback.
func (s *Service) IssueSession(user *domainAccount.User) (*AuthResponse, error) {
	pair, err := s.generateSession(user)
	if err != nil {
		return nil, err
	}
	return toAuthResponse(user, pair), nil
}

func (s *Service) sendConfirmation(ctx context.Context, user *domainAccount.User) error {
	raw, err := s.tokens.Issue(ctx, user.ID, domainAccount.SaltAccountConfirm)
	if err != nil {
		return err
	}

	link := s.tokenLink("/api/v1/account/confirm", raw)
	return s.mail.SendAccountConfirmation(ctx, user.Email, user.Username, link)
}

func (s *Service) generateSession(user *domainAccount.User) (*utils.TokenPair, error) {
	pair, err := utils.GenerateTokenPair(
		user.ID,
		user.Email,
		user.Username,
		s.config.JWT.Secret,
		s.config.JWT.ExpiryHours,
		s.config.JWT.RefreshExpiryHours,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session tokens: %w", err)
	}

	return pair, nil
}

func (s *Service) tokenLink(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", s.config.Server.BaseURL, path, token)
}

func toProfileResponse(u *domainAccount.User, p *domainAccount.Profile) *ProfileResponse {
	return &ProfileResponse{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Bio:       p.Bio,
		Avatar:    p.Avatar,
	}
}
