package finance

import "time"

// CashPosition is the sum of payments minus the sum of expenses
func CashPosition(txns []*Transaction) int64 {
	var cash int64
	for _, t := range txns {
		cash += t.Signed()
	}
	return cash
}

// Totals is revenue and spending over a period
type Totals struct {
	Revenue  int64
	Expenses int64
}

// Net is revenue minus expenses
func (t Totals) Net() int64 {
	return t.Revenue - t.Expenses
}

// TotalsBetween sums transactions dated in [from, to)
func TotalsBetween(txns []*Transaction, from, to time.Time) Totals {
	var totals Totals
	for _, t := range txns {
		if t.Date.Before(from) || !t.Date.Before(to) {
			continue
		}
		switch t.Type {
		case TransactionPayment:
			totals.Revenue += t.Amount
		case TransactionExpense:
			totals.Expenses += t.Amount
		}
	}
	return totals
}
