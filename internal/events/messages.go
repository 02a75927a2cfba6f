package events

import (
	"encoding/json"
	"time"

	"dues/internal/core"
)

// Event kinds published on ledger changes.
const (
	KindPaymentToggled  = "payment.toggled"
	KindMemberCreated   = "member.created"
	KindMemberDeleted   = "member.deleted"
	KindExpenseCreated  = "expense.created"
	KindExpenseDeleted  = "expense.deleted"
	KindSettingsUpdated = "settings.updated"
)

// Event is a lightweight change notification. Consumers fetch current state
// through the API; the message carries only what happened and to whom.
type Event struct {
	Kind      string         `json:"kind"`
	EntityID  string         `json:"entityId,omitempty"`
	Month     core.YearMonth `json:"month,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(kind, entityID string, month core.YearMonth) Event {
	return Event{Kind: kind, EntityID: entityID, Month: month, Timestamp: time.Now().UTC()}
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates an event from JSON bytes.
func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
