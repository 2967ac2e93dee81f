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

// OAuthRepository implements account.OAuthRepository
type OAuthRepository struct {
	db *DB
}

// NewOAuthRepository creates a new oauth link repository
func NewOAuthRepository(db *DB) account.OAuthRepository {
	return &OAuthRepository{db: db}
}

func (r *OAuthRepository) Create(ctx context.Context, link *account.OAuthLink) error {
	link.ID = uuid.New()
	link.CreatedAt = time.Now()

	dbModel := toOAuthLinkModel(link)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		if isDuplicateKey(err) {
			return account.ErrLinkExists
		}
		return fmt.Errorf("failed to create oauth link: %w", err)
	}

	return nil
}

func (r *OAuthRepository) GetByProviderID(ctx context.Context, provider, providerID string) (*account.OAuthLink, error) {
	var dbModel models.OAuthLinkModel
	err := r.db.DB.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, account.ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth link: %w", err)
	}

	return toOAuthLinkEntity(&dbModel), nil
}

func (r *OAuthRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*account.OAuthLink, error) {
	var dbModels []models.OAuthLinkModel
	err := r.db.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth links: %w", err)
	}

	links := make([]*account.OAuthLink, len(dbModels))
	for i := range dbModels {
		links[i] = toOAuthLinkEntity(&dbModels[i])
	}

	return links, nil
}

func (r *OAuthRepository) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	result := r.db.DB.WithContext(ctx).
		Delete(&models.OAuthLinkModel{}, "user_id = ? AND provider = ?", userID, provider)
	if result.Error != nil {
		return fmt.Errorf("failed to delete oauth link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return account.ErrLinkNotFound
	}

	return nil
}

func toOAuthLinkModel(l *account.OAuthLink) *models.OAuthLinkModel {
	return &models.OAuthLinkModel{
		ID:         l.ID,
		UserID:     l.UserID,
		Provider:   l.Provider,
		ProviderID: l.ProviderID,
		CreatedAt:  l.CreatedAt,
	}
}

func toOAuthLinkEntity(m *models.OAuthLinkModel) *account.OAuthLink {
	return &account.OAuthLink{
		ID:         m.ID,
		UserID:     m.UserID,
		Provider:   m.Provider,
		ProviderID: m.ProviderID,
		CreatedAt:  m.CreatedAt,
	}
}
