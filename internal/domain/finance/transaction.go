package finance

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/shared"
)

// TransactionType is the direction of a cash movement
type TransactionType string

const (
	TransactionPayment TransactionType = "payment"
	TransactionExpense TransactionType = "expense"
)

// SourceManual marks records entered by hand rather than imported
const SourceManual = "manual"

// Transaction is an immutable cash movement. Amount is in minor currency units and never negative;
// the direction is carried by Type.
type Transaction struct {
	shared.BaseEntity
	UserID      uuid.UUID
	Type        TransactionType
	Amount      int64
	Description string
	Category    string
	Source      string
	Date        time.Time
}

// NewTransaction validates and creates a transaction
func NewTransaction(userID uuid.UUID, typ TransactionType, amount int64, description, source string, date time.Time) (*Transaction, error) {
	if typ != TransactionPayment && typ != TransactionExpense {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Transaction type must be payment or expense")
	}
	if amount < 0 {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount cannot be negative")
	}
	if strings.TrimSpace(source) == "" {
		source = SourceManual
	}
	return &Transaction{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Type:        typ,
		Amount:      amount,
		Description: description,
		Source:      source,
		Date:        date,
	}, nil
}

// Signed returns the amount with expenses negative
func (t *Transaction) Signed() int64 {
	if t.Type == TransactionExpense {
		return -t.Amount
	}
	return t.Amount
}
