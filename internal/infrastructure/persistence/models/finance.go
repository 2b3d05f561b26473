package models

import (
	"time"

	"github.com/opshub/backend/internal/domain/finance"
)

// TransactionModel is the persistence model for cash movements
type TransactionModel struct {
	TenantModel
	Type        finance.TransactionType `gorm:"type:varchar(20);not null"`
	Amount      int64                   `gorm:"not null"`
	Description string                  `gorm:"type:text"`
	Category    string                  `gorm:"type:varchar(100)"`
	Source      string                  `gorm:"type:varchar(50);not null;default:'manual'"`
	Date        time.Time               `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() *finance.Transaction {
	return &finance.Transaction{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		Type:        m.Type,
		Amount:      m.Amount,
		Description: m.Description,
		Category:    m.Category,
		Source:      m.Source,
		Date:        m.Date,
	}
}

// TransactionModelFromDomain creates a persistence model from a domain Transaction
func TransactionModelFromDomain(t *finance.Transaction) *TransactionModel {
	m := &TransactionModel{
		Type:        t.Type,
		Amount:      t.Amount,
		Description: t.Description,
		Category:    t.Category,
		Source:      t.Source,
		Date:        t.Date,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	m.UserID = t.UserID
	return m
}

// InvoiceModel is the persistence model for invoices
type InvoiceModel struct {
	TenantModel
	Client      string                `gorm:"type:varchar(200)"`
	Description string                `gorm:"type:text"`
	Amount      int64                 `gorm:"not null"`
	DueDate     time.Time             `gorm:"not null"`
	Status      finance.InvoiceStatus `gorm:"type:varchar(20);not null;index"`
	Source      string                `gorm:"type:varchar(50);not null;default:'manual'"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	return &finance.Invoice{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		Client:      m.Client,
		Description: m.Description,
		Amount:      m.Amount,
		DueDate:     m.DueDate,
		Status:      m.Status,
		Source:      m.Source,
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *finance.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Client:      inv.Client,
		Description: inv.Description,
		Amount:      inv.Amount,
		DueDate:     inv.DueDate,
		Status:      inv.Status,
		Source:      inv.Source,
	}
	m.FromDomainBaseEntity(inv.BaseEntity)
	m.UserID = inv.UserID
	return m
}
