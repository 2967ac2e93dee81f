package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"account-service/internal/config"
	domainAccount "account-service/internal/domain/account"
	"account-service/internal/logger"
	appErrors "account-service/pkg/errors"
	"account-service/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const ProviderGoogle = "google"

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Service links external identity-provider subjects to local accounts
// and drives the Google authorization-code flow.
type Service struct {
	users  domainAccount.UserRepository
	links  domainAccount.OAuthRepository
	google *oauth2.Config
	client *http.Client
}

// NewService creates a new oauth service
func NewService(
	users domainAccount.UserRepository,
	links domainAccount.OAuthRepository,
	cfg *config.Config,
) *Service {
	return &Service{
		users: users,
		links: links,
		google: &oauth2.Config{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "profile", "email"},
			RedirectURL:  cfg.OAuth.GoogleRedirectURL,
		},
		client: http.DefaultClient,
	}
}

// GoogleAuthURL returns the Google consent-page URL for the given state.
func (s *Service) GoogleAuthURL(state string) string {
	return s.google.AuthCodeURL(state)
}

// GoogleCallback exchanges the authorization code, resolves or creates
// the local account and links the Google subject to it.
func (s *Service) GoogleCallback(ctx context.Context, code string) (*domainAccount.User, error) {
	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		logger.Warn("Google token exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: token exchange failed", appErrors.ErrOAuthUnavailable)
	}

	info, err := s.fetchGoogleUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo fetch failed", appErrors.ErrOAuthUnavailable)
	}
	if info.Email == "" || info.ID == "" {
		return nil, fmt.Errorf("%w: incomplete userinfo", appErrors.ErrOAuthUnavailable)
	}

	user, err := s.GetOrCreate(ctx, info.Email, usernameCandidate(info.Email), info.GivenName, info.FamilyName)
	if err != nil {
		return nil, err
	}

	if err := s.Link(ctx, user, ProviderGoogle, info.ID); err != nil {
		return nil, err
	}

	logger.Info("Google login completed",
		zap.String("user_id", user.ID.String()),
		zap.String("event", "oauth_login_success"),
	)

	return user, nil
}

// GetOrCreate resolves a user by email, creating one when absent. The
// call is idempotent: the same email always lands on the same account.
// Created users are active immediately (the provider verified the
// email) and carry a random password nobody can use.
func (s *Service) GetOrCreate(ctx context.Context, email, candidateUsername, firstName, lastName string) (*domainAccount.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domainAccount.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	username, err := s.uniqueUsername(ctx, email, candidateUsername)
	if err != nil {
		return nil, err
	}

	randomPassword, err := utils.RandomPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}
	hashedPassword, err := utils.HashPassword(randomPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user = &domainAccount.User{
		Username:      username,
		Email:         email,
		PasswordHash:  hashedPassword,
		FirstName:     firstName,
		LastName:      lastName,
		Active:        true,
		PasswordLogin: false,
	}

	if err := s.users.Create(ctx, user, &domainAccount.Profile{}); err != nil {
		if errors.Is(err, domainAccount.ErrUserAlreadyExists) {
			// Lost a race against a concurrent registration for the
			// same email; the row that won is the account we want.
			return s.users.GetByEmail(ctx, email)
		}
		return nil, err
	}

	logger.Info("User created from identity provider",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("event", "oauth_user_created"),
	)

	return user, nil
}

// Link associates a provider subject with the user. Linking is
// idempotent for the same user and a conflict for any other.
func (s *Service) Link(ctx context.Context, user *domainAccount.User, provider, providerID string) error {
	existing, err := s.links.GetByProviderID(ctx, provider, providerID)
	if err == nil {
		if existing.UserID == user.ID {
			return nil
		}
		logger.Warn("Identity subject already linked elsewhere",
			zap.String("provider", provider),
			zap.String("user_id", user.ID.String()),
			zap.String("event", "oauth_link_conflict"),
		)
		return appErrors.ErrOAuthSubjectLinked
	}
	if !errors.Is(err, domainAccount.ErrLinkNotFound) {
		return fmt.Errorf("failed to check oauth link: %w", err)
	}

	link := &domainAccount.OAuthLink{
		UserID:     user.ID,
		Provider:   provider,
		ProviderID: providerID,
	}

	if err := s.links.Create(ctx, link); err != nil {
		if errors.Is(err, domainAccount.ErrLinkExists) {
			return appErrors.ErrOAuthSubjectLinked
		}
		return err
	}

	return nil
}

// Unlink removes a provider association, refusing when it is the only
// way left to sign in.
func (s *Service) Unlink(ctx context.Context, userID uuid.UUID, provider string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainAccount.ErrUserNotFound) {
			return appErrors.ErrUserNotFound
		}
		return err
	}

	links, err := s.links.GetByUser(ctx, userID)
	if err != nil {
		return err
	}

	if !user.PasswordLogin && len(links) <= 1 {
		return appErrors.ErrLastAuthMethod
	}

	if err := s.links.Delete(ctx, userID, provider); err != nil {
		if errors.Is(err, domainAccount.ErrLinkNotFound) {
			return appErrors.ErrUserNotFound
		}
		return err
	}

	logger.Info("Identity provider unlinked",
		zap.String("user_id", userID.String()),
		zap.String("provider", provider),
		zap.String("event", "oauth_unlinked"),
	)

	return nil
}

// GenerateState returns a random value binding the redirect to the
// callback request.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *Service) uniqueUsername(ctx context.Context, email, candidate string) (string, error) {
	if candidate != "" {
		if _, err := s.users.GetByUsername(ctx, candidate); errors.Is(err, domainAccount.ErrUserNotFound) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}

	local := usernameCandidate(email)
	for attempt := 0; attempt < 5; attempt++ {
		b := make([]byte, 3)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		derived := fmt.Sprintf("%s_%s", local, hex.EncodeToString(b))

		if _, err := s.users.GetByUsername(ctx, derived); errors.Is(err, domainAccount.ErrUserNotFound) {
			return derived, nil
		} else if err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("failed to derive a unique username for %q", local)
}

func usernameCandidate(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	return utils.SanitizeUsername(local)
}

type googleUserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func (s *Service) fetchGoogleUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &info, nil
}
