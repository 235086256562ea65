// Package stats reduces normalized records into chart series and
// categorical distributions.
package stats

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/studioledger/internal/records/domain"
)

const DefaultRevenueMonths = 6

// MonthBucket is one calendar month of the revenue series.
type MonthBucket struct {
	Period  string          `json:"period"`
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
	Events  int             `json:"events"`
}

// RevenueSeries returns the trailing months calendar months up to and
// including the month of now, oldest first. Months are cut in now's location.
// Revenue sums Received payments; Events counts Events records. Every month is
// emitted, empty or not.
func RevenueSeries(events []domain.Event, payments []domain.Payment, now time.Time, months int) []MonthBucket {
	if months <= 0 {
		months = DefaultRevenueMonths
	}
	loc := now.Location()
	current := truncateToMonth(now, loc)
	start := current.AddDate(0, -(months - 1), 0)

	buckets := make([]MonthBucket, months)
	for i := range buckets {
		month := start.AddDate(0, i, 0)
		buckets[i] = MonthBucket{
			Period:  month.Format("2006-01"),
			Label:   month.Format("Jan"),
			Revenue: decimal.Zero,
		}
	}

	index := func(t *time.Time) int {
		if t == nil {
			return -1
		}
		i := monthSpan(start, truncateToMonth(*t, loc)) - 1
		if i < 0 || i >= months {
			return -1
		}
		return i
	}

	for _, p := range payments {
		if p.Status != domain.PaymentStatusReceived {
			continue
		}
		if i := index(p.PaymentDate); i >= 0 {
			buckets[i].Revenue = buckets[i].Revenue.Add(p.Amount)
		}
	}
	for _, e := range events {
		if i := index(e.EventDate); i >= 0 {
			buckets[i].Events++
		}
	}
	return buckets
}

func truncateToMonth(value time.Time, loc *time.Location) time.Time {
	local := value.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// monthSpan counts the months from start to end inclusive; 0 when end precedes start.
func monthSpan(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	yearDiff := end.Year() - start.Year()
	monthDiff := int(end.Month()) - int(start.Month())
	return yearDiff*12 + monthDiff + 1
}
