package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
	return &t
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestForClientSumsAndOrders(t *testing.T) {
	payments := []records.Payment{
		{ID: "P-1", LeadID: "L-1", Amount: amount("10000.10"), PaymentDate: at(2025, 8, 1)},
		{ID: "P-2", LeadID: "L-2", Amount: amount("5000")},
		{ID: "P-3", LeadID: "L-1", Amount: amount("0.20")},
		{ID: "P-4", LeadID: " L-1 ", Amount: amount("2500.70"), PaymentDate: at(2025, 9, 1)},
	}

	entry := ForClient(payments, "L-1")

	assert.True(t, amount("12501").Equal(entry.TotalPaid), "got %s", entry.TotalPaid)
	assert.Equal(t, 3, entry.PaymentCount)
	ids := []string{entry.Payments[0].ID, entry.Payments[1].ID, entry.Payments[2].ID}
	assert.Equal(t, []string{"P-4", "P-1", "P-3"}, ids)
}

func TestForClientUnknownLead(t *testing.T) {
	entry := ForClient([]records.Payment{{LeadID: "L-1", Amount: amount("1")}}, "L-9")
	assert.True(t, entry.TotalPaid.IsZero())
	assert.Zero(t, entry.PaymentCount)
	assert.Empty(t, entry.Payments)

	entry = ForClient([]records.Payment{{LeadID: "", Amount: amount("1")}}, "")
	assert.Zero(t, entry.PaymentCount)
}

func TestBuildLedgerSumInvariant(t *testing.T) {
	leads := []records.Lead{
		{ID: "L-1", ClientName: "Asha", Budget: amount("50000"), Status: records.LeadStatusConverted},
		{ID: "L-2", ClientName: "Ravi", Budget: amount("30000"), Status: records.LeadStatusEventCompleted},
		{ID: "L-3", ClientName: "Meera", Budget: amount("10000"), Status: records.LeadStatusContacted},
	}
	payments := []records.Payment{
		{ID: "P-1", LeadID: "L-1", Amount: amount("20000.33")},
		{ID: "P-2", LeadID: "L-1", Amount: amount("4999.67")},
		{ID: "P-3", LeadID: "L-2", Amount: amount("35000")},
		{ID: "P-4", LeadID: "L-3", Amount: amount("1000")},
		{ID: "P-5", LeadID: "ghost", Amount: amount("700")},
	}

	book := Build(leads, payments, time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC))

	require.Len(t, book.Ledgers, 2)
	for id, l := range book.Ledgers {
		sum := decimal.Zero
		for _, p := range payments {
			if p.LeadID == id {
				sum = sum.Add(p.Amount)
			}
		}
		assert.True(t, sum.Equal(l.TotalPaid), "ledger %s", id)
		assert.True(t, l.Budget.Sub(l.TotalPaid).Equal(l.Remaining), "ledger %s", id)
	}

	asha := book.Ledgers["L-1"]
	assert.True(t, amount("25000").Equal(asha.TotalPaid))
	assert.Equal(t, records.ClientPaymentPartialPaid, asha.Status)
	assert.Equal(t, 2, asha.PaymentCount)

	ravi := book.Ledgers["L-2"]
	assert.True(t, amount("-5000").Equal(ravi.Remaining), "overpayment is not clamped")
	assert.Equal(t, records.ClientPaymentFullyPaid, ravi.Status)

	unmatched := []string{}
	for _, p := range book.Unmatched {
		unmatched = append(unmatched, p.ID)
	}
	assert.Equal(t, []string{"P-4", "P-5"}, unmatched)

	assert.True(t, amount("25000").Equal(book.Outstanding()))
	assert.Equal(t, 1, book.CountByStatus(records.ClientPaymentPartialPaid))
}

func TestBuildClassifiesOverdue(t *testing.T) {
	due := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	leads := []records.Lead{
		{ID: "L-1", Budget: amount("50000"), Status: records.LeadStatusConverted, BalanceDueDate: &due},
		{ID: "L-1", Budget: amount("99999"), Status: records.LeadStatusConverted},
		{ID: "", Budget: amount("10"), Status: records.LeadStatusConverted},
	}
	payments := []records.Payment{{ID: "P-1", LeadID: "L-1", Amount: amount("25000")}}

	book := Build(leads, payments, time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC))

	require.Len(t, book.Ledgers, 1)
	l := book.Ledgers["L-1"]
	assert.Equal(t, records.ClientPaymentOverdue, l.Status)
	assert.True(t, amount("50000").Equal(l.Budget), "first lead owns the identifier")
	assert.Empty(t, book.Unmatched)
}
