package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// TenantModel is a record owned by one tenant
type TenantModel struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// All returns every model for AutoMigrate in tests
func All() []any {
	return []any{
		&UserModel{},
		&TransactionModel{},
		&InvoiceModel{},
		&IntegrationModel{},
		&TaskModel{},
		&ReportModel{},
	}
}
