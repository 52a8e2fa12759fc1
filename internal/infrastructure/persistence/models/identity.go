package models

import (
	"time"

	"github.com/kpiboard/backend/internal/domain/identity"
)

// UserModel is the persistence model for dashboard accounts
type UserModel struct {
	BaseModel
	Email             string  `gorm:"type:varchar(200);not null;uniqueIndex"`
	Name              string  `gorm:"type:varchar(200)"`
	PasswordHash      string  `gorm:"type:varchar(255);not null"`
	ResetToken        *string `gorm:"type:varchar(255);index"`
	ResetTokenExpires *time.Time
	LastLoginAt       *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseEntity:        m.BaseModel.ToDomain(),
		Email:             m.Email,
		Name:              m.Name,
		PasswordHash:      m.PasswordHash,
		ResetToken:        m.ResetToken,
		ResetTokenExpires: m.ResetTokenExpires,
		LastLoginAt:       m.LastLoginAt,
	}
}

// UserModelFromDomain converts a domain User entity to a persistence model
func UserModelFromDomain(user *identity.User) *UserModel {
	model := &UserModel{
		Email:             user.Email,
		Name:              user.Name,
		PasswordHash:      user.PasswordHash,
		ResetToken:        user.ResetToken,
		ResetTokenExpires: user.ResetTokenExpires,
		LastLoginAt:       user.LastLoginAt,
	}
	model.FromDomainBaseEntity(user.BaseEntity)
	return model
}
