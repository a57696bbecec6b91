package amqp

import (
	"encoding/json"
	"time"
)

// BudgetEventMessage signals that a period's budgets changed. It carries only
// the operation and the period; consumers re-derive everything else from the
// store.
type BudgetEventMessage struct {
	Operation string    `json:"operation"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBudgetEventMessage creates an event message for the period
func NewBudgetEventMessage(operation string, month, year int) *BudgetEventMessage {
	return &BudgetEventMessage{
		Operation: operation,
		Month:     month,
		Year:      year,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetEventMessageFromJSON creates a message from JSON bytes
func BudgetEventMessageFromJSON(data []byte) (*BudgetEventMessage, error) {
	var msg BudgetEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
