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

// ProfileRepository implements account.ProfileRepository
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) account.ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*account.Profile, error) {
	var dbModel models.ProfileModel
	err := r.db.DB.WithContext(ctx).Where("user_id = ?", userID).First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, account.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return toProfileEntity(&dbModel), nil
}

func (r *ProfileRepository) Update(ctx context.Context, p *account.Profile) error {
	p.UpdatedAt = time.Now()

	result := r.db.DB.WithContext(ctx).Model(&models.ProfileModel{}).
		Where("user_id = ?", p.UserID).
		Updates(map[string]interface{}{
			"bio":        p.Bio,
			"avatar":     p.Avatar,
			"updated_at": p.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return account.ErrProfileNotFound
	}

	return nil
}

func toProfileModel(p *account.Profile) *models.ProfileModel {
	return &models.ProfileModel{
		ID:        p.ID,
		UserID:    p.UserID,
		Bio:       p.Bio,
		Avatar:    p.Avatar,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toProfileEntity(m *models.ProfileModel) *account.Profile {
	return &account.Profile{
		ID:        m.ID,
		UserID:    m.UserID,
		Bio:       m.Bio,
		Avatar:    m.Avatar,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
