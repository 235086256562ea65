package normalize

import (
	"strings"

	"github.com/smallbiznis/studioledger/internal/records/domain"
)

// Status strings are matched case-sensitively; only surrounding whitespace is
// ignored. An empty value maps to the fallback with ok=true, an unrecognized
// value maps to the fallback with ok=false.

func ParseLeadStatus(raw string) (domain.LeadStatus, bool) {
	value := strings.TrimSpace(raw)
	for _, status := range domain.LeadStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return domain.LeadStatusUnknown, value == ""
}

func ParseEventStatus(raw string) (domain.EventStatus, bool) {
	value := strings.TrimSpace(raw)
	for _, status := range domain.EventStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return domain.EventStatusUnknown, value == ""
}

func ParsePaymentStatus(raw string) (domain.PaymentStatus, bool) {
	value := strings.TrimSpace(raw)
	for _, status := range domain.PaymentStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return domain.PaymentStatusOther, value == ""
}

func ParsePaymentType(raw string) (domain.PaymentType, bool) {
	value := strings.TrimSpace(raw)
	for _, paymentType := range domain.PaymentTypes {
		if string(paymentType) == value {
			return paymentType, true
		}
	}
	return domain.PaymentTypeOther, value == ""
}

func parseActive(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case bool:
		return typed
	}
	switch strings.ToLower(stringValue(v)) {
	case "", "1", "true", "yes", "y", "active":
		return true
	default:
		return false
	}
}
