package amqp

import (
	"encoding/json"
	"time"
)

const (
	// EventGigCompleted is published after a "got paid" transition; the
	// worker refreshes the user's exported report in response.
	EventGigCompleted EventType = "gig.completed"

	// EventReportSync asks the worker to re-export a user's annual report,
	// published best-effort after any gig or expense mutation.
	EventReportSync EventType = "report.sync"
)

type EventType string

// Event is the single envelope carried on the gig-events queue. Payload
// fields are lightweight: the worker re-reads authoritative state from the
// store, so a lost or stale event costs nothing but freshness.
type Event struct {
	Type               EventType `json:"type"`
	UserID             int64     `json:"user_id"`
	GigIDs             []int64   `json:"gig_ids,omitempty"`
	TaxableIncomeCents int64     `json:"taxable_income_cents,omitempty"`
	Year               int       `json:"year"`
	Timestamp          time.Time `json:"timestamp"`
}

func NewGigCompletedEvent(userID int64, gigIDs []int64, taxableIncomeCents int64, year int) *Event {
	return &Event{
		Type:               EventGigCompleted,
		UserID:             userID,
		GigIDs:             gigIDs,
		TaxableIncomeCents: taxableIncomeCents,
		Year:               year,
		Timestamp:          time.Now(),
	}
}

func NewReportSyncEvent(userID int64, year int) *Event {
	return &Event{
		Type:      EventReportSync,
		UserID:    userID,
		Year:      year,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
