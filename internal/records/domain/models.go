package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeadStatus is the lead's position in the sales funnel.
type LeadStatus string

const (
	LeadStatusNew            LeadStatus = "New Lead"
	LeadStatusContacted      LeadStatus = "Contacted"
	LeadStatusConverted      LeadStatus = "Converted"
	LeadStatusEventCompleted LeadStatus = "Event Completed"
	LeadStatusUnknown        LeadStatus = "Unknown"
)

// LeadStatuses lists the funnel stages in pipeline order.
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusConverted,
	LeadStatusEventCompleted,
}

// IsCommitted reports whether the lead carries a booked event and a committed budget.
func (s LeadStatus) IsCommitted() bool {
	return s == LeadStatusConverted || s == LeadStatusEventCompleted
}

type EventStatus string

const (
	EventStatusConfirmed EventStatus = "Confirmed"
	EventStatusPending   EventStatus = "Pending"
	EventStatusCompleted EventStatus = "Completed"
	EventStatusCancelled EventStatus = "Cancelled"
	EventStatusUnknown   EventStatus = "Unknown"
)

var EventStatuses = []EventStatus{
	EventStatusConfirmed,
	EventStatusPending,
	EventStatusCompleted,
	EventStatusCancelled,
}

// PaymentStatus is the status carried by an individual payment record.
type PaymentStatus string

const (
	PaymentStatusReceived PaymentStatus = "Received"
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusOverdue  PaymentStatus = "Overdue"
	PaymentStatusOther    PaymentStatus = "Other"
)

var PaymentStatuses = []PaymentStatus{
	PaymentStatusReceived,
	PaymentStatusPending,
	PaymentStatusOverdue,
}

type PaymentType string

const (
	PaymentTypeAdvance PaymentType = "Advance"
	PaymentTypeBalance PaymentType = "Balance"
	PaymentTypeFull    PaymentType = "Full"
	PaymentTypePartial PaymentType = "Partial"
	PaymentTypeOther   PaymentType = "Other"
)

var PaymentTypes = []PaymentType{
	PaymentTypeAdvance,
	PaymentTypeBalance,
	PaymentTypeFull,
	PaymentTypePartial,
}

// ClientPaymentStatus is the classification derived for a client ledger.
// It is distinct from PaymentStatus, which belongs to a single payment record.
type ClientPaymentStatus string

const (
	ClientPaymentFullyPaid   ClientPaymentStatus = "Fully Paid"
	ClientPaymentPartialPaid ClientPaymentStatus = "Partial Paid"
	ClientPaymentPending     ClientPaymentStatus = "Pending"
	ClientPaymentOverdue     ClientPaymentStatus = "Overdue"
)

// Lead is a normalized client inquiry.
type Lead struct {
	ID             string          `json:"id"`
	ClientName     string          `json:"client_name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	EventType      string          `json:"event_type"`
	EventDate      *time.Time      `json:"event_date,omitempty"`
	Venue          string          `json:"venue"`
	Budget         decimal.Decimal `json:"budget"`
	Photographer   string          `json:"photographer,omitempty"`
	Status         LeadStatus      `json:"status"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	BalanceDueDate *time.Time      `json:"balance_due_date,omitempty"`
}

// Event is a normalized shoot recorded outside the lead funnel.
type Event struct {
	ID           string          `json:"id"`
	ClientName   string          `json:"client_name"`
	EventType    string          `json:"event_type"`
	EventDate    *time.Time      `json:"event_date,omitempty"`
	Venue        string          `json:"venue"`
	Price        decimal.Decimal `json:"price"`
	Advance      decimal.Decimal `json:"advance"`
	Photographer string          `json:"photographer,omitempty"`
	Status       EventStatus     `json:"status"`
}

// Payment is a normalized financial transaction.
type Payment struct {
	ID            string          `json:"id"`
	LeadID        string          `json:"lead_id"`
	ClientName    string          `json:"client_name"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentType   PaymentType     `json:"payment_type"`
	PaymentMethod string          `json:"payment_method"`
	PaymentDate   *time.Time      `json:"payment_date,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Status        PaymentStatus   `json:"status"`
}

// Photographer is a roster entry.
type Photographer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}
