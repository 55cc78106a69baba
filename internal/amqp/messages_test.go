package amqp

import (
	"testing"
	"time"
)

func TestNewBalanceEditedMessage(t *testing.T) {
	msg := NewBalanceEditedMessage("u1", "2024-03")

	if msg.Kind != EventBalanceEdited {
		t.Errorf("Kind = %v, want %v", msg.Kind, EventBalanceEdited)
	}
	if msg.UserID != "u1" {
		t.Errorf("UserID = %v, want u1", msg.UserID)
	}
	if msg.Period != "2024-03" {
		t.Errorf("Period = %v, want 2024-03", msg.Period)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
}

func TestNewReconciliationConfirmedMessage(t *testing.T) {
	msg := NewReconciliationConfirmedMessage("u1", "evt-1", "rent:2024-03", "tx-9", 82)

	if msg.Kind != EventReconciliationConfirmed {
		t.Errorf("Kind = %v, want %v", msg.Kind, EventReconciliationConfirmed)
	}
	if msg.EventID != "evt-1" || msg.OccurrenceID != "rent:2024-03" || msg.TransactionID != "tx-9" {
		t.Errorf("identifiers = %v/%v/%v, want evt-1/rent:2024-03/tx-9",
			msg.EventID, msg.OccurrenceID, msg.TransactionID)
	}
	if msg.Confidence != 82 {
		t.Errorf("Confidence = %v, want 82", msg.Confidence)
	}
}

func TestEventMessage_JSON(t *testing.T) {
	msg := &EventMessage{
		Kind:      EventBalanceEdited,
		UserID:    "u1",
		Period:    "2024-05",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := EventMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("EventMessageFromJSON() error = %v", err)
	}

	if parsed.Kind != msg.Kind || parsed.UserID != msg.UserID || parsed.Period != msg.Period {
		t.Errorf("parsed = %+v, want %+v", parsed, msg)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestEventMessageFromJSON_Invalid(t *testing.T) {
	if _, err := EventMessageFromJSON([]byte(`{"confidence": "high"}`)); err == nil {
		t.Error("EventMessageFromJSON() should fail with invalid JSON")
	}
}
