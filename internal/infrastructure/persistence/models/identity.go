package models

import (
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/shared"
)

// UserModel is the persistence model for tenants and admins
type UserModel struct {
	BaseModel
	Email            string                    `gorm:"type:varchar(255);index"`
	BusinessName     string                    `gorm:"type:varchar(200)"`
	Role             identity.Role             `gorm:"type:varchar(20);not null;default:'client'"`
	IsActive         bool                      `gorm:"not null"`
	EmailPreferences identity.EmailPreferences `gorm:"type:jsonb;serializer:json"`
	PasswordHash     string                    `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	prefs := m.EmailPreferences
	if prefs == nil {
		prefs = identity.EmailPreferences{}
	}
	return &identity.User{
		BaseEntity:       shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Email:            m.Email,
		BusinessName:     m.BusinessName,
		Role:             m.Role,
		IsActive:         m.IsActive,
		EmailPreferences: prefs,
		PasswordHash:     m.PasswordHash,
	}
}

// UserModelFromDomain creates a persistence model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Email:            u.Email,
		BusinessName:     u.BusinessName,
		Role:             u.Role,
		IsActive:         u.IsActive,
		EmailPreferences: u.EmailPreferences,
		PasswordHash:     u.PasswordHash,
	}
	m.FromDomainBaseEntity(u.BaseEntity)
	return m
}
