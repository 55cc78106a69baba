package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the engine event stream.
const (
	EventBalanceEdited           = "balance_edited"
	EventReconciliationConfirmed = "reconciliation_confirmed"
)

// EventMessage is the envelope for engine mutation events. Kind selects which
// optional fields are set: balance edits carry Period, reconciliations carry
// the event, occurrence and transaction IDs.
type EventMessage struct {
	Kind          string    `json:"kind"`
	UserID        string    `json:"user_id"`
	Period        string    `json:"period,omitempty"` // "YYYY-MM"
	EventID       string    `json:"event_id,omitempty"`
	OccurrenceID  string    `json:"occurrence_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Confidence    int       `json:"confidence,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewBalanceEditedMessage(userID, periodKey string) *EventMessage {
	return &EventMessage{
		Kind:      EventBalanceEdited,
		UserID:    userID,
		Period:    periodKey,
		Timestamp: time.Now(),
	}
}

func NewReconciliationConfirmedMessage(userID, eventID, occurrenceID, transactionID string, confidence int) *EventMessage {
	return &EventMessage{
		Kind:          EventReconciliationConfirmed,
		UserID:        userID,
		EventID:       eventID,
		OccurrenceID:  occurrenceID,
		TransactionID: transactionID,
		Confidence:    confidence,
		Timestamp:     time.Now(),
	}
}

func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
