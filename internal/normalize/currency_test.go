package normalize

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "indian grouping with symbol", input: "₹1,23,456", want: "123456"},
		{name: "western grouping", input: "₹50,000", want: "50000"},
		{name: "rs prefix with dot", input: "Rs. 2,500.50", want: "2500.5"},
		{name: "rs prefix", input: "Rs 900", want: "900"},
		{name: "code suffix", input: "75000 INR", want: "75000"},
		{name: "non breaking space", input: "₹ 12,000", want: "12000"},
		{name: "plain number string", input: "42", want: "42"},
		{name: "float cell", input: float64(1500.25), want: "1500.25"},
		{name: "int cell", input: 3000, want: "3000"},
		{name: "json number", input: json.Number("99.5"), want: "99.5"},
		{name: "empty", input: "", want: "0"},
		{name: "blank", input: "   ", want: "0"},
		{name: "nil", input: nil, want: "0"},
		{name: "letters", input: "abc", want: "0"},
		{name: "symbol only", input: "₹", want: "0"},
		{name: "bool", input: true, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCurrency(tt.input)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "ParseCurrency(%v) = %s, want %s", tt.input, got, tt.want)
		})
	}
}

func TestCurrencyDescriptorReportsMalformed(t *testing.T) {
	d := INR()

	_, ok := d.Parse("abc")
	assert.False(t, ok)

	_, ok = d.Parse("")
	assert.True(t, ok, "empty is absent, not malformed")

	_, ok = d.Parse(nil)
	assert.True(t, ok)
}

func TestCurrencyDescriptorEuropeanLocale(t *testing.T) {
	eur := CurrencyDescriptor{
		Code:             "EUR",
		Symbols:          []string{"€"},
		GroupSeparator:   ".",
		DecimalSeparator: ",",
	}

	got, ok := eur.Parse("€ 1.234,56")
	assert.True(t, ok)
	assert.True(t, decimal.RequireFromString("1234.56").Equal(got), "got %s", got)
}
