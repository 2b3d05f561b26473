package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTransactionRepository implements finance.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

var _ finance.TransactionRepository = (*GormTransactionRepository)(nil)

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// ListTransactions returns a tenant's transactions ordered by date
func (r *GormTransactionRepository) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*finance.Transaction, error) {
	var rows []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*finance.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// CreateTransaction inserts a transaction
func (r *GormTransactionRepository) CreateTransaction(ctx context.Context, txn *finance.Transaction) error {
	return r.db.WithContext(ctx).Create(models.TransactionModelFromDomain(txn)).Error
}

// GormInvoiceRepository implements finance.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

var _ finance.InvoiceRepository = (*GormInvoiceRepository)(nil)

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// ListInvoices returns a tenant's invoices ordered by due date
func (r *GormInvoiceRepository) ListInvoices(ctx context.Context, userID uuid.UUID) ([]*finance.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("due_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*finance.Invoice, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// CreateInvoice inserts an invoice
func (r *GormInvoiceRepository) CreateInvoice(ctx context.Context, inv *finance.Invoice) error {
	return r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(inv)).Error
}
