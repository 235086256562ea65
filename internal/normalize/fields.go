package normalize

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/smallbiznis/studioledger/internal/records/domain"
)

// aliases lists, per canonical field, the keys the different sheets have used
// for it. Exact keys are tried first, then a folded comparison.
type aliases []string

var (
	leadID             = aliases{"id", "leadId", "lead_id", "Lead ID"}
	leadClientName     = aliases{"clientName", "client_name", "Client Name", "name", "client"}
	leadPhone          = aliases{"phone", "phoneNumber", "mobile", "contact"}
	leadEmail          = aliases{"email", "emailAddress"}
	leadEventType      = aliases{"eventType", "event_type", "Event Type", "type", "category"}
	leadEventDate      = aliases{"eventDate", "event_date", "Event Date", "date"}
	leadVenue          = aliases{"venue", "location"}
	leadBudget         = aliases{"budget", "amount", "price", "package"}
	leadPhotographer   = aliases{"photographer", "assignedPhotographer", "assignedTo"}
	leadStatus         = aliases{"status", "stage", "leadStatus"}
	leadCreatedAt      = aliases{"createdAt", "created_at", "Created At", "timestamp", "createdOn", "dateCreated"}
	leadBalanceDueDate = aliases{"balanceDueDate", "balance_due_date", "Balance Due Date", "dueDate", "due_date"}

	eventID           = aliases{"id", "eventId", "event_id"}
	eventClientName   = aliases{"clientName", "client_name", "Client Name", "name", "client"}
	eventType         = aliases{"eventType", "event_type", "Event Type", "type", "category"}
	eventDate         = aliases{"eventDate", "event_date", "Event Date", "date"}
	eventVenue        = aliases{"venue", "location"}
	eventPrice        = aliases{"price", "totalPrice", "total_price", "total", "amount", "budget"}
	eventAdvance      = aliases{"advance", "advancePaid", "advance_paid", "deposit"}
	eventPhotographer = aliases{"photographer", "assignedPhotographer", "assignedTo"}
	eventStatus       = aliases{"status", "eventStatus"}

	paymentID            = aliases{"id", "paymentId", "payment_id"}
	paymentLeadID        = aliases{"leadId", "lead_id", "clientId", "client_id"}
	paymentClientName    = aliases{"clientName", "client_name", "Client Name", "name", "client"}
	paymentAmount        = aliases{"amount", "paid", "amountPaid"}
	paymentType          = aliases{"paymentType", "payment_type", "type"}
	paymentMethod        = aliases{"paymentMethod", "payment_method", "method", "mode"}
	paymentDate          = aliases{"paymentDate", "payment_date", "date", "paidOn"}
	paymentTransactionID = aliases{"transactionId", "transaction_id", "txnId", "reference", "utr"}
	paymentNotes         = aliases{"notes", "note", "remarks"}
	paymentStatus        = aliases{"status", "paymentStatus"}

	photographerID     = aliases{"id", "photographerId", "photographer_id"}
	photographerName   = aliases{"name", "photographerName", "fullName"}
	photographerPhone  = aliases{"phone", "phoneNumber", "mobile"}
	photographerEmail  = aliases{"email", "emailAddress"}
	photographerActive = aliases{"active", "isActive", "status"}
)

// lookup returns the first value present under any alias and the key it was found at.
func (a aliases) lookup(r domain.RawRecord) (any, string) {
	for _, key := range a {
		if v, ok := r[key]; ok {
			return v, key
		}
	}
	// sorted so that two keys folding to the same alias resolve the same way every time
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range a {
		folded := foldKey(key)
		for _, k := range keys {
			if foldKey(k) == folded {
				return r[k], k
			}
		}
	}
	return nil, ""
}

// foldKey lowercases and drops everything but letters and digits, so
// "Client Name", "client_name" and "clientName" compare equal.
func foldKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func stringValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	case time.Time:
		return typed.Format(time.RFC3339)
	default:
		return ""
	}
}
