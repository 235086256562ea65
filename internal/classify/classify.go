// Package classify derives the per-client payment status and the funnel
// stage of a lead.
package classify

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/studioledger/internal/records/domain"
)

// Eligible reports whether a lead has a committed budget and therefore a
// payment classification.
func Eligible(status domain.LeadStatus) bool {
	return status.IsCommitted()
}

// PaymentStatusFor classifies a client from its budget and payments. A due
// date that has elapsed while the budget is not covered yields Overdue,
// whatever the partial/pending split was.
func PaymentStatusFor(budget, totalPaid decimal.Decimal, dueDate *time.Time, now time.Time) domain.ClientPaymentStatus {
	var status domain.ClientPaymentStatus
	switch {
	case totalPaid.GreaterThanOrEqual(budget):
		status = domain.ClientPaymentFullyPaid
	case totalPaid.IsPositive():
		status = domain.ClientPaymentPartialPaid
	default:
		status = domain.ClientPaymentPending
	}

	if dueDate != nil && dueDate.Before(now) && totalPaid.LessThan(budget) {
		status = domain.ClientPaymentOverdue
	}
	return status
}

// Stage is a lead's position in the sales funnel.
type Stage struct {
	Stage domain.LeadStatus `json:"stage"`
	Index int               `json:"index"`
}

// Funnel lists the stages in pipeline order.
var Funnel = domain.LeadStatuses

// FunnelStage returns the stage for status; anything outside the funnel is
// Unknown with index -1.
func FunnelStage(status domain.LeadStatus) Stage {
	for i, s := range Funnel {
		if s == status {
			return Stage{Stage: s, Index: i}
		}
	}
	return Stage{Stage: domain.LeadStatusUnknown, Index: -1}
}
