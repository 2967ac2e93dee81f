package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	domainAccount "account-service/internal/domain/account"
	"account-service/internal/logger"
	appErrors "account-service/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxIssueAttempts bounds regeneration on a (token, salt) collision.
// With 32 bytes of randomness a second attempt is already unheard of.
const maxIssueAttempts = 5

// TokenService mints and verifies purpose-salted, single-use security
// tokens. Expiry is lazy: a token past its window is finalized (flagged
// and removed) at verification time, never by a background sweep.
type TokenService struct {
	tokens domainAccount.TokenRepository
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(tokens domainAccount.TokenRepository, ttl time.Duration) *TokenService {
	return &TokenService{
		tokens: tokens,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a random token under the given salt and persists it,
// regenerating when the uniqueness constraint trips.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, salt string) (string, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		raw, err := generateToken()
		if err != nil {
			return "", fmt.Errorf("failed to generate token: %w", err)
		}

		token := &domainAccount.SecurityToken{
			UserID: userID,
			Token:  raw,
			Salt:   salt,
		}

		err = s.tokens.Create(ctx, token)
		if errors.Is(err, domainAccount.ErrTokenExists) {
			logger.Warn("Security token collision, regenerating",
				zap.String("salt", salt),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return "", err
		}

		return raw, nil
	}

	return "", fmt.Errorf("failed to issue token after %d attempts", maxIssueAttempts)
}

// Verify resolves a raw token within its salt family. A consumed token
// reads as invalid; a token past its window is flagged expired, deleted
// and reported expired, so stale rows clean themselves up.
func (s *TokenService) Verify(ctx context.Context, raw, salt string) (*domainAccount.SecurityToken, error) {
	token, err := s.tokens.GetByTokenAndSalt(ctx, raw, salt)
	if err != nil {
		if errors.Is(err, domainAccount.ErrTokenNotFound) {
			return nil, appErrors.ErrTokenInvalid
		}
		return nil, err
	}

	if token.Expired {
		return nil, appErrors.ErrTokenInvalid
	}

	if s.now().After(token.ExpiresAt(s.ttl)) {
		if err := s.tokens.MarkExpired(ctx, token.ID); err != nil {
			logger.Error("Failed to flag expired security token",
				zap.String("token_id", token.ID.String()),
				zap.Error(err),
			)
		}
		if err := s.tokens.Delete(ctx, token.ID); err != nil {
			logger.Error("Failed to delete expired security token",
				zap.String("token_id", token.ID.String()),
				zap.Error(err),
			)
		}
		return nil, appErrors.ErrTokenExpired
	}

	return token, nil
}

// Consume burns a verified token so it can never be used again. It is
// called before the flow's effect is applied; a burned token on a failed
// effect fails closed.
func (s *TokenService) Consume(ctx context.Context, token *domainAccount.SecurityToken) error {
	if err := s.tokens.MarkExpired(ctx, token.ID); err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}
	token.Expired = true

	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
