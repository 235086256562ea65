package normalize

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// CurrencyDescriptor describes how amounts are written in the source sheets.
type CurrencyDescriptor struct {
	Code             string   `mapstructure:"code" json:"code"`
	Symbols          []string `mapstructure:"symbols" json:"symbols"`
	GroupSeparator   string   `mapstructure:"groupSeparator" json:"group_separator"`
	DecimalSeparator string   `mapstructure:"decimalSeparator" json:"decimal_separator"`
}

// INR is the default descriptor: rupee symbol, Indian digit grouping.
func INR() CurrencyDescriptor {
	return CurrencyDescriptor{
		Code:             "INR",
		Symbols:          []string{"₹", "Rs.", "Rs", "INR"},
		GroupSeparator:   ",",
		DecimalSeparator: ".",
	}
}

// ParseCurrency parses v with the INR descriptor. Empty, nil and malformed
// values yield zero.
func ParseCurrency(v any) decimal.Decimal {
	amount, _ := INR().Parse(v)
	return amount
}

// Parse converts a raw cell into an amount. ok is false only when v carried
// something that could not be read as a number; the amount is zero then.
func (d CurrencyDescriptor) Parse(v any) (decimal.Decimal, bool) {
	switch typed := v.(type) {
	case nil:
		return decimal.Zero, true
	case decimal.Decimal:
		return typed, true
	case float64:
		return decimal.NewFromFloat(typed), true
	case float32:
		return decimal.NewFromFloat32(typed), true
	case int:
		return decimal.NewFromInt(int64(typed)), true
	case int64:
		return decimal.NewFromInt(typed), true
	case int32:
		return decimal.NewFromInt32(typed), true
	case json.Number:
		return d.parseString(typed.String())
	case string:
		return d.parseString(typed)
	default:
		return decimal.Zero, false
	}
}

func (d CurrencyDescriptor) parseString(raw string) (decimal.Decimal, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero, true
	}

	for _, symbol := range d.symbolsLongestFirst() {
		value = strings.ReplaceAll(value, symbol, "")
	}
	if d.GroupSeparator != "" && d.GroupSeparator != d.DecimalSeparator {
		value = strings.ReplaceAll(value, d.GroupSeparator, "")
	}
	value = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
	if d.DecimalSeparator != "" && d.DecimalSeparator != "." {
		value = strings.ReplaceAll(value, d.DecimalSeparator, ".")
	}
	if value == "" {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// "Rs." has to be stripped before "Rs" or a stray dot is left behind.
func (d CurrencyDescriptor) symbolsLongestFirst() []string {
	symbols := make([]string, 0, len(d.Symbols))
	for _, s := range d.Symbols {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	sort.SliceStable(symbols, func(i, j int) bool {
		return len(symbols[i]) > len(symbols[j])
	})
	return symbols
}
