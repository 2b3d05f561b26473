package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/shared"
)

// InvoiceStatus is maintained outside the automation core; jobs only read it
type InvoiceStatus string

const (
	InvoiceDue     InvoiceStatus = "due"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// IsValid reports whether s is a known status
func (s InvoiceStatus) IsValid() bool {
	return s == InvoiceDue || s == InvoicePaid || s == InvoiceOverdue
}

// Invoice is money owed to the tenant by one of its customers
type Invoice struct {
	shared.BaseEntity
	UserID      uuid.UUID
	Client      string
	Description string
	Amount      int64
	DueDate     time.Time
	Status      InvoiceStatus
	Source      string
}

// NewInvoice validates and creates an invoice
func NewInvoice(userID uuid.UUID, client, description string, amount int64, dueDate time.Time, status InvoiceStatus, source string) (*Invoice, error) {
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_INVOICE_STATUS", "Invoice status must be due, paid or overdue")
	}
	if amount < 0 {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount cannot be negative")
	}
	if source == "" {
		source = SourceManual
	}
	return &Invoice{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Client:      client,
		Description: description,
		Amount:      amount,
		DueDate:     dueDate,
		Status:      status,
		Source:      source,
	}, nil
}

// Overdue filters invoices whose status is overdue, preserving order
func Overdue(invoices []*Invoice) []*Invoice {
	out := make([]*Invoice, 0)
	for _, inv := range invoices {
		if inv.Status == InvoiceOverdue {
			out = append(out, inv)
		}
	}
	return out
}

// TotalAmount sums the amounts of invoices
func TotalAmount(invoices []*Invoice) int64 {
	var total int64
	for _, inv := range invoices {
		total += inv.Amount
	}
	return total
}
