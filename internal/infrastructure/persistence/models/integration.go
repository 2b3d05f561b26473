package models

import (
	"time"

	"github.com/opshub/backend/internal/domain/integration"
)

// IntegrationModel is the persistence model for platform connections.
// Credentials holds the vault envelope, never plaintext.
type IntegrationModel struct {
	TenantModel
	Platform    string `gorm:"type:varchar(50);not null;index"`
	IsConnected bool   `gorm:"not null;default:false"`
	Credentials string `gorm:"type:text"`
	LastSynced  *time.Time
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the persistence model to a domain Integration
func (m *IntegrationModel) ToDomain() *integration.Integration {
	return &integration.Integration{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		Platform:    m.Platform,
		IsConnected: m.IsConnected,
		Credentials: m.Credentials,
		LastSynced:  m.LastSynced,
	}
}

// IntegrationModelFromDomain creates a persistence model from a domain Integration
func IntegrationModelFromDomain(i *integration.Integration) *IntegrationModel {
	m := &IntegrationModel{
		Platform:    i.Platform,
		IsConnected: i.IsConnected,
		Credentials: i.Credentials,
		LastSynced:  i.LastSynced,
	}
	m.FromDomainBaseEntity(i.BaseEntity)
	m.UserID = i.UserID
	return m
}
