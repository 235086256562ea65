package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
)

var ErrLedgerNotFound = errors.New("ledger_not_found")

// Entry is the payment aggregate for a single lead identifier.
type Entry struct {
	TotalPaid    decimal.Decimal   `json:"total_paid"`
	PaymentCount int               `json:"payment_count"`
	Payments     []records.Payment `json:"payments"`
}

// ClientLedger is the per-client view of payments against the committed budget.
// Remaining goes negative on overpayment.
type ClientLedger struct {
	LeadID         string                      `json:"lead_id"`
	ClientName     string                      `json:"client_name"`
	Budget         decimal.Decimal             `json:"budget"`
	TotalPaid      decimal.Decimal             `json:"total_paid"`
	Remaining      decimal.Decimal             `json:"remaining"`
	Status         records.ClientPaymentStatus `json:"status"`
	PaymentCount   int                         `json:"payment_count"`
	Payments       []records.Payment           `json:"payments"`
	BalanceDueDate *time.Time                  `json:"balance_due_date,omitempty"`
}

// Book holds the ledgers of every eligible lead and the payments that matched none.
type Book struct {
	Ledgers   map[string]ClientLedger
	Unmatched []records.Payment
}

// Outstanding sums the positive remaining balances.
func (b Book) Outstanding() decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.Ledgers {
		if l.Remaining.IsPositive() {
			total = total.Add(l.Remaining)
		}
	}
	return total
}

// CountByStatus counts ledgers classified as status.
func (b Book) CountByStatus(status records.ClientPaymentStatus) int {
	count := 0
	for _, l := range b.Ledgers {
		if l.Status == status {
			count++
		}
	}
	return count
}
