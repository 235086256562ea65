package pdf

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders an amount with two decimals and the currency's digit
// grouping. INR groups as 12,34,567.00.
func FormatAmount(amount decimal.Decimal, currencyCode, symbol string) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	fixed := amount.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var grouped string
	if strings.EqualFold(currencyCode, "INR") {
		grouped = groupIndian(intPart)
	} else {
		grouped = groupThousands(intPart)
	}

	if symbol == "" {
		symbol = currencyCode + " "
	}
	return sign + symbol + grouped + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}
