// Package normalize turns raw sheet rows into typed records. It never fails:
// malformed values fall back to safe defaults and are reported as Issues for
// the caller to log.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/studioledger/internal/records/domain"
)

type IssueKind string

const (
	IssueMalformedAmount IssueKind = "malformed_amount"
	IssueMalformedDate   IssueKind = "malformed_date"
	IssueUnknownStatus   IssueKind = "unknown_status"
	IssueUnknownType     IssueKind = "unknown_type"
)

// Issue is a data-quality finding for a single field.
type Issue struct {
	Collection domain.CollectionName `json:"collection"`
	RecordID   string                `json:"record_id"`
	Index      int                   `json:"index"`
	Field      string                `json:"field"`
	Raw        string                `json:"raw"`
	Kind       IssueKind             `json:"kind"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s[%d] %s=%q: %s", i.Collection, i.Index, i.Field, i.Raw, i.Kind)
}

// Options configure locale-dependent parsing.
type Options struct {
	Currency    CurrencyDescriptor
	Location    *time.Location
	DateLayouts []string
	PhoneRegion string
}

func DefaultOptions() Options {
	return Options{
		Currency:    INR(),
		Location:    time.UTC,
		DateLayouts: DefaultDateLayouts,
		PhoneRegion: defaultPhoneRegion,
	}
}

// Result holds the normalized records of the available collections.
type Result struct {
	Leads         []domain.Lead
	Events        []domain.Event
	Payments      []domain.Payment
	Photographers []domain.Photographer
	Issues        []Issue
}

type Normalizer struct {
	currency    CurrencyDescriptor
	dates       DateParser
	phoneRegion string
}

func New(opts Options) *Normalizer {
	if len(opts.Currency.Symbols) == 0 && opts.Currency.GroupSeparator == "" && opts.Currency.DecimalSeparator == "" {
		opts.Currency = INR()
	}
	return &Normalizer{
		currency:    opts.Currency,
		dates:       DateParser{Layouts: opts.DateLayouts, Location: opts.Location},
		phoneRegion: opts.PhoneRegion,
	}
}

// Snapshot normalizes every available collection of s. Unavailable
// collections produce no records.
func (n *Normalizer) Snapshot(s domain.Snapshot) Result {
	var res Result
	if s.Leads.Available {
		res.Leads = make([]domain.Lead, 0, len(s.Leads.Records))
		for i, r := range s.Leads.Records {
			lead, issues := n.Lead(i, r)
			res.Leads = append(res.Leads, lead)
			res.Issues = append(res.Issues, issues...)
		}
	}
	if s.Events.Available {
		res.Events = make([]domain.Event, 0, len(s.Events.Records))
		for i, r := range s.Events.Records {
			event, issues := n.Event(i, r)
			res.Events = append(res.Events, event)
			res.Issues = append(res.Issues, issues...)
		}
	}
	if s.Payments.Available {
		res.Payments = make([]domain.Payment, 0, len(s.Payments.Records))
		for i, r := range s.Payments.Records {
			payment, issues := n.Payment(i, r)
			res.Payments = append(res.Payments, payment)
			res.Issues = append(res.Issues, issues...)
		}
	}
	if s.Photographers.Available {
		res.Photographers = make([]domain.Photographer, 0, len(s.Photographers.Records))
		for _, r := range s.Photographers.Records {
			res.Photographers = append(res.Photographers, n.Photographer(r))
		}
	}
	return res
}

func (n *Normalizer) Lead(index int, r domain.RawRecord) (domain.Lead, []Issue) {
	rec := n.reader(domain.CollectionLeads, index, r, leadID)

	statusRaw := rec.str(leadStatus)
	status, ok := ParseLeadStatus(statusRaw)
	if !ok {
		rec.report("status", statusRaw, IssueUnknownStatus)
	}

	return domain.Lead{
		ID:             rec.id,
		ClientName:     rec.str(leadClientName),
		Phone:          NormalizePhone(rec.str(leadPhone), n.phoneRegion),
		Email:          strings.ToLower(rec.str(leadEmail)),
		EventType:      rec.str(leadEventType),
		EventDate:      rec.day(leadEventDate),
		Venue:          rec.str(leadVenue),
		Budget:         rec.amount(leadBudget),
		Photographer:   rec.str(leadPhotographer),
		Status:         status,
		CreatedAt:      rec.timestamp(leadCreatedAt),
		BalanceDueDate: rec.day(leadBalanceDueDate),
	}, rec.issues
}

func (n *Normalizer) Event(index int, r domain.RawRecord) (domain.Event, []Issue) {
	rec := n.reader(domain.CollectionEvents, index, r, eventID)

	statusRaw := rec.str(eventStatus)
	status, ok := ParseEventStatus(statusRaw)
	if !ok {
		rec.report("status", statusRaw, IssueUnknownStatus)
	}

	return domain.Event{
		ID:           rec.id,
		ClientName:   rec.str(eventClientName),
		EventType:    rec.str(eventType),
		EventDate:    rec.day(eventDate),
		Venue:        rec.str(eventVenue),
		Price:        rec.amount(eventPrice),
		Advance:      rec.amount(eventAdvance),
		Photographer: rec.str(eventPhotographer),
		Status:       status,
	}, rec.issues
}

func (n *Normalizer) Payment(index int, r domain.RawRecord) (domain.Payment, []Issue) {
	rec := n.reader(domain.CollectionPayments, index, r, paymentID)

	statusRaw := rec.str(paymentStatus)
	status, ok := ParsePaymentStatus(statusRaw)
	if !ok {
		rec.report("status", statusRaw, IssueUnknownStatus)
	}
	typeRaw := rec.str(paymentType)
	kind, ok := ParsePaymentType(typeRaw)
	if !ok {
		rec.report("paymentType", typeRaw, IssueUnknownType)
	}

	return domain.Payment{
		ID:            rec.id,
		LeadID:        rec.str(paymentLeadID),
		ClientName:    rec.str(paymentClientName),
		Amount:        rec.amount(paymentAmount),
		PaymentType:   kind,
		PaymentMethod: rec.str(paymentMethod),
		PaymentDate:   rec.timestamp(paymentDate),
		TransactionID: rec.str(paymentTransactionID),
		Notes:         rec.str(paymentNotes),
		Status:        status,
	}, rec.issues
}

func (n *Normalizer) Photographer(r domain.RawRecord) domain.Photographer {
	active, _ := photographerActive.lookup(r)
	name, _ := photographerName.lookup(r)
	id, _ := photographerID.lookup(r)
	phone, _ := photographerPhone.lookup(r)
	email, _ := photographerEmail.lookup(r)
	return domain.Photographer{
		ID:     stringValue(id),
		Name:   stringValue(name),
		Phone:  NormalizePhone(stringValue(phone), n.phoneRegion),
		Email:  strings.ToLower(stringValue(email)),
		Active: parseActive(active),
	}
}

type recordReader struct {
	n          *Normalizer
	collection domain.CollectionName
	index      int
	id         string
	raw        domain.RawRecord
	issues     []Issue
}

func (n *Normalizer) reader(collection domain.CollectionName, index int, r domain.RawRecord, id aliases) *recordReader {
	rec := &recordReader{n: n, collection: collection, index: index, raw: r}
	rec.id = rec.str(id)
	return rec
}

func (r *recordReader) report(field, raw string, kind IssueKind) {
	r.issues = append(r.issues, Issue{
		Collection: r.collection,
		RecordID:   r.id,
		Index:      r.index,
		Field:      field,
		Raw:        raw,
		Kind:       kind,
	})
}

func (r *recordReader) str(a aliases) string {
	v, _ := a.lookup(r.raw)
	return stringValue(v)
}

func (r *recordReader) amount(a aliases) decimal.Decimal {
	v, key := a.lookup(r.raw)
	amount, ok := r.n.currency.Parse(v)
	if !ok {
		r.report(key, fmt.Sprint(v), IssueMalformedAmount)
	}
	return amount
}

func (r *recordReader) day(a aliases) *time.Time {
	v, key := a.lookup(r.raw)
	t, ok := r.n.dates.Day(v)
	if !ok {
		r.report(key, fmt.Sprint(v), IssueMalformedDate)
	}
	return t
}

func (r *recordReader) timestamp(a aliases) *time.Time {
	v, key := a.lookup(r.raw)
	t, ok := r.n.dates.Timestamp(v)
	if !ok {
		r.report(key, fmt.Sprint(v), IssueMalformedDate)
	}
	return t
}
