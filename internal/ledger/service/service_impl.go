package service

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/studioledger/internal/classify"
	ledgerdomain "github.com/smallbiznis/studioledger/internal/ledger/domain"
	records "github.com/smallbiznis/studioledger/internal/records/domain"
)

// ForClient aggregates the payments whose lead identifier equals leadID.
// Payments are returned newest first; undated payments go last.
func ForClient(payments []records.Payment, leadID string) ledgerdomain.Entry {
	leadID = strings.TrimSpace(leadID)
	entry := ledgerdomain.Entry{TotalPaid: decimal.Zero, Payments: []records.Payment{}}
	if leadID == "" {
		return entry
	}
	for _, p := range payments {
		if strings.TrimSpace(p.LeadID) != leadID {
			continue
		}
		entry.TotalPaid = entry.TotalPaid.Add(p.Amount)
		entry.Payments = append(entry.Payments, p)
	}
	entry.PaymentCount = len(entry.Payments)
	SortByDateDesc(entry.Payments)
	return entry
}

// Build creates a ledger for every Converted or Event Completed lead with an
// identifier. When several eligible leads share an identifier the first one
// owns the ledger. Payments pointing at no eligible lead are returned as
// Unmatched in source order.
func Build(leads []records.Lead, payments []records.Payment, now time.Time) ledgerdomain.Book {
	book := ledgerdomain.Book{
		Ledgers:   make(map[string]ledgerdomain.ClientLedger),
		Unmatched: []records.Payment{},
	}

	grouped := make(map[string][]records.Payment)
	for _, p := range payments {
		id := strings.TrimSpace(p.LeadID)
		grouped[id] = append(grouped[id], p)
	}

	for _, lead := range leads {
		id := strings.TrimSpace(lead.ID)
		if id == "" || !classify.Eligible(lead.Status) {
			continue
		}
		if _, exists := book.Ledgers[id]; exists {
			continue
		}
		entry := ForClient(grouped[id], id)
		book.Ledgers[id] = ledgerdomain.ClientLedger{
			LeadID:         id,
			ClientName:     lead.ClientName,
			Budget:         lead.Budget,
			TotalPaid:      entry.TotalPaid,
			Remaining:      lead.Budget.Sub(entry.TotalPaid),
			Status:         classify.PaymentStatusFor(lead.Budget, entry.TotalPaid, lead.BalanceDueDate, now),
			PaymentCount:   entry.PaymentCount,
			Payments:       entry.Payments,
			BalanceDueDate: lead.BalanceDueDate,
		}
	}

	for _, p := range payments {
		if _, ok := book.Ledgers[strings.TrimSpace(p.LeadID)]; !ok {
			book.Unmatched = append(book.Unmatched, p)
		}
	}
	return book
}

// SortByDateDesc orders payments newest first in place, keeping undated
// payments last and ties in their original order.
func SortByDateDesc(payments []records.Payment) {
	sort.SliceStable(payments, func(i, j int) bool {
		return newer(payments[i].PaymentDate, payments[j].PaymentDate)
	})
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
