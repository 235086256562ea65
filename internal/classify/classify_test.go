package classify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/stretchr/testify/assert"
)

func TestPaymentStatusFor(t *testing.T) {
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	elapsed := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	budget := decimal.NewFromInt(50000)

	tests := []struct {
		name    string
		budget  decimal.Decimal
		paid    decimal.Decimal
		dueDate *time.Time
		want    domain.ClientPaymentStatus
	}{
		{name: "paid in full", budget: budget, paid: decimal.NewFromInt(50000), want: domain.ClientPaymentFullyPaid},
		{name: "overpaid", budget: budget, paid: decimal.NewFromInt(60000), want: domain.ClientPaymentFullyPaid},
		{name: "partial", budget: budget, paid: decimal.NewFromInt(25000), want: domain.ClientPaymentPartialPaid},
		{name: "nothing paid", budget: budget, paid: decimal.Zero, want: domain.ClientPaymentPending},
		{name: "partial past due", budget: budget, paid: decimal.NewFromInt(25000), dueDate: &elapsed, want: domain.ClientPaymentOverdue},
		{name: "pending past due", budget: budget, paid: decimal.Zero, dueDate: &elapsed, want: domain.ClientPaymentOverdue},
		{name: "paid past due", budget: budget, paid: decimal.NewFromInt(50000), dueDate: &elapsed, want: domain.ClientPaymentFullyPaid},
		{name: "partial not yet due", budget: budget, paid: decimal.NewFromInt(25000), dueDate: &future, want: domain.ClientPaymentPartialPaid},
		{name: "due now is not elapsed", budget: budget, paid: decimal.NewFromInt(25000), dueDate: &now, want: domain.ClientPaymentPartialPaid},
		{name: "zero budget", budget: decimal.Zero, paid: decimal.Zero, want: domain.ClientPaymentFullyPaid},
		{name: "fractional shortfall", budget: decimal.RequireFromString("1000.50"), paid: decimal.NewFromInt(1000), want: domain.ClientPaymentPartialPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PaymentStatusFor(tt.budget, tt.paid, tt.dueDate, now))
		})
	}
}

func TestEligible(t *testing.T) {
	assert.True(t, Eligible(domain.LeadStatusConverted))
	assert.True(t, Eligible(domain.LeadStatusEventCompleted))
	assert.False(t, Eligible(domain.LeadStatusNew))
	assert.False(t, Eligible(domain.LeadStatusContacted))
	assert.False(t, Eligible(domain.LeadStatusUnknown))
}

func TestFunnelStage(t *testing.T) {
	assert.Equal(t, Stage{Stage: domain.LeadStatusNew, Index: 0}, FunnelStage(domain.LeadStatusNew))
	assert.Equal(t, Stage{Stage: domain.LeadStatusEventCompleted, Index: 3}, FunnelStage(domain.LeadStatusEventCompleted))
	assert.Equal(t, Stage{Stage: domain.LeadStatusUnknown, Index: -1}, FunnelStage(domain.LeadStatus("Lost")))
}
