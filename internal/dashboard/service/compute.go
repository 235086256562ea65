package service

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/studioledger/internal/config"
	dashboard "github.com/smallbiznis/studioledger/internal/dashboard/domain"
	"github.com/smallbiznis/studioledger/internal/eventmerge"
	ledgerdomain "github.com/smallbiznis/studioledger/internal/ledger/domain"
	ledger "github.com/smallbiznis/studioledger/internal/ledger/service"
	"github.com/smallbiznis/studioledger/internal/normalize"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/smallbiznis/studioledger/internal/stats"
)

const DefaultRecentLimit = 5

// Options carry everything Compute needs besides the snapshot and the time.
type Options struct {
	Normalize     normalize.Options
	WindowMonths  int
	RevenueMonths int
	RecentLimit   int
	DedupKey      eventmerge.KeyFunc
}

func DefaultOptions() Options {
	return Options{
		Normalize:     normalize.DefaultOptions(),
		WindowMonths:  eventmerge.DefaultWindowMonths,
		RevenueMonths: stats.DefaultRevenueMonths,
		RecentLimit:   DefaultRecentLimit,
		DedupKey:      eventmerge.NameDateKey,
	}
}

// OptionsFromConfig maps the reloadable dashboard settings.
func OptionsFromConfig(cfg config.DashboardConfig) Options {
	return Options{
		Normalize: normalize.Options{
			Currency:    cfg.Currency,
			Location:    cfg.Location(),
			DateLayouts: cfg.DateLayouts,
			PhoneRegion: cfg.PhoneRegion,
		},
		WindowMonths:  cfg.UpcomingWindowMonths,
		RevenueMonths: cfg.RevenueMonths,
		RecentLimit:   cfg.RecentLimit,
		DedupKey:      eventmerge.KeyFuncFor(cfg.DedupKey),
	}
}

func (o Options) location() *time.Location {
	if o.Normalize.Location == nil {
		return time.UTC
	}
	return o.Normalize.Location
}

// Compute derives the full dashboard from one snapshot. It holds no state and
// reads no clock: identical inputs produce identical results.
func Compute(snapshot records.Snapshot, opts Options, now time.Time) dashboard.Result {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}
	now = now.In(opts.location())

	norm := normalize.New(opts.Normalize).Snapshot(snapshot)

	upcoming := eventmerge.Merge(norm.Events, norm.Leads, now, eventmerge.Options{
		WindowMonths: opts.WindowMonths,
		Key:          opts.DedupKey,
		Location:     opts.location(),
	})

	book := ledgerdomain.Book{
		Ledgers:   map[string]ledgerdomain.ClientLedger{},
		Unmatched: []records.Payment{},
	}
	if snapshot.Leads.Available && snapshot.Payments.Available {
		book = ledger.Build(norm.Leads, norm.Payments, now)
	}

	issues := norm.Issues
	if issues == nil {
		issues = []normalize.Issue{}
	}

	return dashboard.Result{
		Stats:          computeStats(norm, upcoming, book),
		UpcomingEvents: upcoming,
		RecentLeads:    recentLeads(norm.Leads, opts.RecentLimit),
		RecentPayments: recentPayments(norm.Payments, opts.RecentLimit),
		Charts: dashboard.Charts{
			Revenue:              stats.RevenueSeries(norm.Events, norm.Payments, now, opts.RevenueMonths),
			LeadsByType:          stats.LeadsByType(norm.Leads),
			PaymentStatus:        stats.PaymentStatusDistribution(norm.Payments),
			Funnel:               stats.FunnelDistribution(norm.Leads),
			PhotographerWorkload: stats.PhotographerWorkload(upcoming, norm.Photographers),
		},
		ClientLedgers: book.Ledgers,
		Sources:       sourceStates(snapshot),
		Issues:        issues,
		GeneratedAt:   now,
	}
}

func computeStats(norm normalize.Result, upcoming []eventmerge.UpcomingEvent, book ledgerdomain.Book) dashboard.Stats {
	st := dashboard.Stats{
		TotalLeads:         len(norm.Leads),
		TotalEvents:        len(norm.Events),
		UpcomingEvents:     len(upcoming),
		TotalPayments:      len(norm.Payments),
		TotalRevenue:       decimal.Zero,
		PendingAmount:      decimal.Zero,
		PipelineValue:      decimal.Zero,
		OutstandingBalance: book.Outstanding(),
		OverdueClients:     book.CountByStatus(records.ClientPaymentOverdue),
		UnmatchedPayments:  len(book.Unmatched),
	}

	for _, l := range norm.Leads {
		switch {
		case l.Status == records.LeadStatusNew:
			st.NewLeads++
		case l.Status.IsCommitted():
			st.ConvertedLeads++
			st.PipelineValue = st.PipelineValue.Add(l.Budget)
		}
	}
	st.ConversionRate = conversionRate(st.ConvertedLeads, st.TotalLeads)

	for _, p := range norm.Payments {
		switch p.Status {
		case records.PaymentStatusReceived:
			st.TotalRevenue = st.TotalRevenue.Add(p.Amount)
		case records.PaymentStatusPending, records.PaymentStatusOverdue:
			st.PendingAmount = st.PendingAmount.Add(p.Amount)
		}
	}

	for _, p := range norm.Photographers {
		if p.Active {
			st.Photographers++
		}
	}
	return st
}

// conversionRate is the committed share of leads as a whole percentage.
func conversionRate(converted, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(converted) * 100 / float64(total)))
}

func recentLeads(leads []records.Lead, limit int) []records.Lead {
	out := append([]records.Lead{}, leads...)
	sort.SliceStable(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func recentPayments(payments []records.Payment, limit int) []records.Payment {
	out := append([]records.Payment{}, payments...)
	ledger.SortByDateDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func newer(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

func sourceStates(snapshot records.Snapshot) map[records.CollectionName]dashboard.SourceState {
	out := make(map[records.CollectionName]dashboard.SourceState, len(records.Collections))
	for _, name := range records.Collections {
		c, err := snapshot.Get(name)
		if err != nil {
			continue
		}
		out[name] = dashboard.SourceState{
			Available: c.Available,
			Stale:     c.Stale,
			Error:     c.Error,
			Records:   len(c.Records),
			FetchedAt: c.FetchedAt,
		}
	}
	return out
}
