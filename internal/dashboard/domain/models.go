package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/studioledger/internal/eventmerge"
	ledgerdomain "github.com/smallbiznis/studioledger/internal/ledger/domain"
	"github.com/smallbiznis/studioledger/internal/normalize"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
	"github.com/smallbiznis/studioledger/internal/stats"
)

// Stats are the top-line dashboard figures.
type Stats struct {
	TotalLeads         int             `json:"total_leads"`
	NewLeads           int             `json:"new_leads"`
	ConvertedLeads     int             `json:"converted_leads"`
	ConversionRate     int             `json:"conversion_rate"`
	TotalEvents        int             `json:"total_events"`
	UpcomingEvents     int             `json:"upcoming_events"`
	TotalPayments      int             `json:"total_payments"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	PendingAmount      decimal.Decimal `json:"pending_amount"`
	PipelineValue      decimal.Decimal `json:"pipeline_value"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	OverdueClients     int             `json:"overdue_clients"`
	Photographers      int             `json:"photographers"`
	UnmatchedPayments  int             `json:"unmatched_payments"`
}

type Charts struct {
	Revenue              []stats.MonthBucket   `json:"revenue"`
	LeadsByType          []stats.CategoryCount `json:"leads_by_type"`
	PaymentStatus        []stats.CategoryCount `json:"payment_status"`
	Funnel               []stats.CategoryCount `json:"funnel"`
	PhotographerWorkload []stats.CategoryCount `json:"photographer_workload"`
}

// SourceState reports how a collection of the snapshot was obtained.
type SourceState struct {
	Available bool      `json:"available"`
	Stale     bool      `json:"stale,omitempty"`
	Error     string    `json:"error,omitempty"`
	Records   int       `json:"records"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Result is the composed, read-only dashboard view of one snapshot.
type Result struct {
	Stats          Stats                                  `json:"stats"`
	UpcomingEvents []eventmerge.UpcomingEvent             `json:"upcoming_events"`
	RecentLeads    []records.Lead                         `json:"recent_leads"`
	RecentPayments []records.Payment                      `json:"recent_payments"`
	Charts         Charts                                 `json:"charts"`
	ClientLedgers  map[string]ledgerdomain.ClientLedger   `json:"client_ledgers"`
	Sources        map[records.CollectionName]SourceState `json:"sources"`
	Issues         []normalize.Issue                      `json:"issues"`
	GeneratedAt    time.Time                              `json:"generated_at"`
}

// Service computes dashboard results with the current settings and clock.
type Service interface {
	Compute(snapshot records.Snapshot) Result
}
