package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"account-service/internal/domain/account"
	"account-service/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository implements account.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) account.UserRepository {
	return &UserRepository{db: db}
}

// Create persists a user together with its profile in one transaction.
// The profile insert rides the same commit as the user insert, so no
// creation path can produce a user without a profile.
func (r *UserRepository) Create(ctx context.Context, u *account.User, p *account.Profile) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()

	if p == nil {
		p = &account.Profile{}
	}
	p.ID = uuid.New()
	p.UserID = u.ID
	p.CreatedAt = u.CreatedAt
	p.UpdatedAt = u.UpdatedAt

	userModel := toUserModel(u)
	profileModel := toProfileModel(p)

	err := r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userModel).Error; err != nil {
			return err
		}
		return tx.Create(profileModel).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return account.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*account.User, error) {
	var dbModel models.UserModel
	err := r.db.DB.WithContext(ctx).First(&dbModel, "id = ?", userID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, account.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUserEntity(&dbModel), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*account.User, error) {
	var dbModel models.UserModel
	err := r.db.DB.WithContext(ctx).Where("email = ?", email).First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, account.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUserEntity(&dbModel), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*account.User, error) {
	var dbModel models.UserModel
	err := r.db.DB.WithContext(ctx).Where("username = ?", username).First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, account.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUserEntity(&dbModel), nil
}

func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*account.User, error) {
	var dbModel models.UserModel
	err := r.db.DB.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, account.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUserEntity(&dbModel), nil
}

func (r *UserRepository) Update(ctx context.Context, u *account.User) error {
	u.UpdatedAt = time.Now()

	result := r.db.DB.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"username":       u.Username,
			"email":          u.Email,
			"first_name":     u.FirstName,
			"last_name":      u.LastName,
			"active":         u.Active,
			"pending_email":  u.PendingEmail,
			"password_login": u.PasswordLogin,
			"updated_at":     u.UpdatedAt,
		})

	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return account.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return account.ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result := r.db.DB.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"password_hash":  passwordHash,
			"password_login": true,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return account.ErrUserNotFound
	}

	return nil
}

// Delete removes a user and everything it owns. Dependent rows are removed
// in the same transaction rather than trusting FK cascades alone, so the
// guarantee holds even against a schema missing the ON DELETE clauses.
func (r *UserRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	return r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ProfileModel{}, "user_id = ?", userID).Error; err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
		if err := tx.Delete(&models.SecurityTokenModel{}, "user_id = ?", userID).Error; err != nil {
			return fmt.Errorf("failed to delete security tokens: %w", err)
		}
		if err := tx.Delete(&models.OAuthLinkModel{}, "user_id = ?", userID).Error; err != nil {
			return fmt.Errorf("failed to delete oauth links: %w", err)
		}

		result := tx.Delete(&models.UserModel{}, "id = ?", userID)
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return account.ErrUserNotFound
		}
		return nil
	})
}

func isDuplicateKey(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate key")
}

func toUserModel(u *account.User) *models.UserModel {
	return &models.UserModel{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Active:        u.Active,
		PendingEmail:  u.PendingEmail,
		PasswordLogin: u.PasswordLogin,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func toUserEntity(m *models.UserModel) *account.User {
	return &account.User{
		ID:            m.ID,
		Username:      m.Username,
		Email:         m.Email,
		PasswordHash:  m.PasswordHash,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Active:        m.Active,
		PendingEmail:  m.PendingEmail,
		PasswordLogin: m.PasswordLogin,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
