package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
)

// Message carries a ledger event from the append transaction to the publisher
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	RentCallID    string              `json:"rent_call_id"`
	Revision      int64               `json:"revision"`
	EventKind     ledger.EventKind    `json:"event_kind"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps an event whose revision has already been assigned
func NewMessage(event ledger.Event) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:    event.ID,
		RentCallID: event.RentCallID,
		Revision:   event.Revision,
		EventKind:  event.Kind,
		Payload:    payload,
		Status:     shared.OutboxStatusPending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// Event decodes the ledger event from the payload
func (m *Message) Event() (*ledger.Event, error) {
	var event ledger.Event
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
