package models

import (
	"time"

	"github.com/google/uuid"
)

// UserModel represents the database model for User
type UserModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Username      string    `gorm:"type:varchar(30);not null;uniqueIndex"`
	Email         string    `gorm:"type:varchar(120);not null;uniqueIndex"`
	PasswordHash  string    `gorm:"type:varchar(128);not null"`
	FirstName     string    `gorm:"type:varchar(25);not null"`
	LastName      string    `gorm:"type:varchar(25);not null"`
	Active        bool      `gorm:"default:false;not null"`
	PendingEmail  *string   `gorm:"type:varchar(120)"`
	PasswordLogin bool      `gorm:"default:true;not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}

// ProfileModel represents the database model for Profile
type ProfileModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	User      UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Bio       string    `gorm:"type:varchar(200);default:''"`
	Avatar    string    `gorm:"type:varchar(250);default:''"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ProfileModel) TableName() string {
	return "profiles"
}

// SecurityTokenModel represents the database model for SecurityToken.
// The (token, salt) pair carries a composite unique index so the same raw
// value cannot exist twice within one purpose family.
type SecurityTokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	User      UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Token     string    `gorm:"type:varchar(138);not null;uniqueIndex:idx_token_salt"`
	Salt      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_token_salt"`
	Expired   bool      `gorm:"default:false;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (SecurityTokenModel) TableName() string {
	return "security_tokens"
}

// OAuthLinkModel represents the database model for OAuthLink
type OAuthLinkModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_provider_user"`
	User       UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Provider   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_provider_user"`
	ProviderID string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (OAuthLinkModel) TableName() string {
	return "oauth_providers"
}
