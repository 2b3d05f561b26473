package finance

import (
	"context"

	"github.com/google/uuid"
)

// TransactionRepository persists a tenant's transactions
type TransactionRepository interface {
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]*Transaction, error)
	CreateTransaction(ctx context.Context, txn *Transaction) error
}

// InvoiceRepository persists a tenant's invoices
type InvoiceRepository interface {
	ListInvoices(ctx context.Context, userID uuid.UUID) ([]*Invoice, error)
	CreateInvoice(ctx context.Context, inv *Invoice) error
}
