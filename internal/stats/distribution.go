package stats

import (
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/studioledger/internal/classify"
	"github.com/smallbiznis/studioledger/internal/eventmerge"
	"github.com/smallbiznis/studioledger/internal/records/domain"
)

const (
	LabelOther      = "Other"
	LabelUnassigned = "Unassigned"
)

// CategoryCount is one slice of a categorical chart. Key is a URL-safe form of Label.
type CategoryCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

func newCategory(label string, count int) CategoryCount {
	key := slug.Make(label)
	if key == "" {
		key = "category"
	}
	return CategoryCount{Key: key, Label: label, Count: count}
}

// tally counts labels and keeps first-seen order for the sort below.
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(label string, n int) {
	if _, ok := t.counts[label]; !ok {
		t.order = append(t.order, label)
	}
	t.counts[label] += n
}

// byCountDesc returns the categories sorted by count descending, then label.
func (t *tally) byCountDesc() []CategoryCount {
	out := make([]CategoryCount, 0, len(t.order))
	for _, label := range t.order {
		out = append(out, newCategory(label, t.counts[label]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// LeadsByType counts leads per event type. Blank types count as Other.
func LeadsByType(leads []domain.Lead) []CategoryCount {
	t := newTally()
	for _, l := range leads {
		label := strings.TrimSpace(l.EventType)
		if label == "" {
			label = LabelOther
		}
		t.add(label, 1)
	}
	return t.byCountDesc()
}

// PaymentStatusDistribution counts payment records by their own status, in
// the order Received, Pending, Overdue, Other. Empty statuses are left out.
func PaymentStatusDistribution(payments []domain.Payment) []CategoryCount {
	order := append(append([]domain.PaymentStatus(nil), domain.PaymentStatuses...), domain.PaymentStatusOther)
	counts := make(map[domain.PaymentStatus]int, len(order))
	for _, p := range payments {
		status := p.Status
		if !knownPaymentStatus(status) {
			status = domain.PaymentStatusOther
		}
		counts[status]++
	}
	out := make([]CategoryCount, 0, len(order))
	for _, status := range order {
		if n := counts[status]; n > 0 {
			out = append(out, newCategory(string(status), n))
		}
	}
	return out
}

func knownPaymentStatus(status domain.PaymentStatus) bool {
	for _, known := range domain.PaymentStatuses {
		if status == known {
			return true
		}
	}
	return false
}

// FunnelDistribution counts leads per funnel stage in pipeline order. Every
// stage is present; Unknown only when some lead falls outside the funnel.
func FunnelDistribution(leads []domain.Lead) []CategoryCount {
	counts := make([]int, len(classify.Funnel))
	unknown := 0
	for _, l := range leads {
		stage := classify.FunnelStage(l.Status)
		if stage.Index < 0 {
			unknown++
			continue
		}
		counts[stage.Index]++
	}
	out := make([]CategoryCount, 0, len(classify.Funnel)+1)
	for i, status := range classify.Funnel {
		out = append(out, newCategory(string(status), counts[i]))
	}
	if unknown > 0 {
		out = append(out, newCategory(string(domain.LeadStatusUnknown), unknown))
	}
	return out
}

// PhotographerWorkload counts upcoming events per assigned photographer.
// Active roster members without bookings are listed with zero.
func PhotographerWorkload(upcoming []eventmerge.UpcomingEvent, roster []domain.Photographer) []CategoryCount {
	t := newTally()
	for _, p := range roster {
		name := strings.TrimSpace(p.Name)
		if p.Active && name != "" {
			t.add(name, 0)
		}
	}
	for _, ue := range upcoming {
		name := strings.TrimSpace(ue.Photographer)
		if name == "" {
			name = LabelUnassigned
		}
		t.add(name, 1)
	}
	return t.byCountDesc()
}
