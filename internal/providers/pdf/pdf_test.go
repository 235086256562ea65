package pdf

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/studioledger/internal/ledger/domain"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		code   string
		symbol string
		want   string
	}{
		{name: "indian lakh grouping", amount: "123456", code: "INR", symbol: "Rs. ", want: "Rs. 1,23,456.00"},
		{name: "indian crore", amount: "12345678.5", code: "INR", symbol: "Rs. ", want: "Rs. 1,23,45,678.50"},
		{name: "small", amount: "999", code: "INR", symbol: "Rs. ", want: "Rs. 999.00"},
		{name: "thousands", amount: "1234567.891", code: "USD", symbol: "$", want: "$1,234,567.89"},
		{name: "negative overpayment", amount: "-5000", code: "INR", symbol: "Rs. ", want: "-Rs. 5,000.00"},
		{name: "code fallback", amount: "4000", code: "EUR", symbol: "", want: "EUR 4,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.amount), tt.code, tt.symbol))
		})
	}
}

func TestMoneyDropsNonLatinSymbol(t *testing.T) {
	d := StatementData{CurrencyCode: "INR", CurrencySymbol: "₹"}
	assert.Equal(t, "INR 50,000.00", d.money(decimal.NewFromInt(50000)))
}

func TestGenerateStatement(t *testing.T) {
	paidOn := time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	reader, err := New().GenerateStatement(context.Background(), StatementData{
		StudioName:   "Lens & Light",
		CurrencyCode: "INR",
		GeneratedAt:  time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC),
		Ledger: ledgerdomain.ClientLedger{
			LeadID:         "L-1",
			ClientName:     "Asha Rao",
			Budget:         decimal.NewFromInt(50000),
			TotalPaid:      decimal.NewFromInt(25000),
			Remaining:      decimal.NewFromInt(25000),
			Status:         records.ClientPaymentPartialPaid,
			PaymentCount:   1,
			BalanceDueDate: &due,
			Payments: []records.Payment{{
				ID:            "P-1",
				LeadID:        "L-1",
				Amount:        decimal.NewFromInt(25000),
				PaymentType:   records.PaymentTypeAdvance,
				PaymentMethod: "UPI",
				PaymentDate:   &paidOn,
				Status:        records.PaymentStatusReceived,
			}},
		},
	})
	require.NoError(t, err)

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestGenerateStatementWithoutPayments(t *testing.T) {
	reader, err := New().GenerateStatement(context.Background(), StatementData{
		CurrencyCode: "INR",
		Ledger:       ledgerdomain.ClientLedger{LeadID: "L-2", Status: records.ClientPaymentPending},
	})
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}
