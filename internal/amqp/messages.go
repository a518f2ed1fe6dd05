package amqp

import (
	"encoding/json"
	"time"
)

// Record kinds carried in ledger change messages.
const (
	KindExpense = "expense"
	KindPayment = "payment"
	KindRent    = "rent"
)

// LedgerChangedMessage signals that a ledger record changed and the period's
// report must be recomputed. It carries only identifiers; the worker reloads
// whatever it needs from storage.
type LedgerChangedMessage struct {
	Kind      string    `json:"kind"`
	RecordID  string    `json:"recordId,omitempty"`
	Period    string    `json:"period"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a change message for the given record.
func NewLedgerChangedMessage(kind, recordID, period string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Kind:      kind,
		RecordID:  recordID,
		Period:    period,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
