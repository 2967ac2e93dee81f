package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-service/internal/domain/account"
	"account-service/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenRepository implements account.TokenRepository
type TokenRepository struct {
	db *DB
}

// NewTokenRepository creates a new security token repository
func NewTokenRepository(db *DB) account.TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, t *account.SecurityToken) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.Expired = false

	dbModel := toSecurityTokenModel(t)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		if isDuplicateKey(err) {
			return account.ErrTokenExists
		}
		return fmt.Errorf("failed to create security token: %w", err)
	}

	return nil
}

func (r *TokenRepository) GetByTokenAndSalt(ctx context.Context, token, salt string) (*account.SecurityToken, error) {
	var dbModel models.SecurityTokenModel
	err := r.db.DB.WithContext(ctx).
		Where("token = ? AND salt = ?", token, salt).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, account.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get security token: %w", err)
	}

	return toSecurityTokenEntity(&dbModel), nil
}

func (r *TokenRepository) MarkExpired(ctx context.Context, tokenID uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.SecurityTokenModel{}).
		Where("id = ?", tokenID).
		Update("expired", true)

	if result.Error != nil {
		return fmt.Errorf("failed to expire security token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return account.ErrTokenNotFound
	}

	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).Delete(&models.SecurityTokenModel{}, "id = ?", tokenID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete security token: %w", result.Error)
	}

	return nil
}

func toSecurityTokenModel(t *account.SecurityToken) *models.SecurityTokenModel {
	return &models.SecurityTokenModel{
		ID:        t.ID,
		UserID:    t.UserID,
		Token:     t.Token,
		Salt:      t.Salt,
		Expired:   t.Expired,
		CreatedAt: t.CreatedAt,
	}
}

func toSecurityTokenEntity(m *models.SecurityTokenModel) *account.SecurityToken {
	return &account.SecurityToken{
		ID:        m.ID,
		UserID:    m.UserID,
		Token:     m.Token,
		Salt:      m.Salt,
		Expired:   m.Expired,
		CreatedAt: m.CreatedAt,
	}
}
