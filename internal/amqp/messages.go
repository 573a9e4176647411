package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

type Action string

const (
	ActionCreated Action = "transaction.created"
	ActionDeleted Action = "transaction.deleted"
)

// TransactionEvent announces a ledger change. It carries only identifiers; the
// consumer reads the full record from the database.
type TransactionEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(action Action, userID, id string) *TransactionEvent {
	return &TransactionEvent{
		ID:        id,
		UserID:    userID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" || msg.UserID == "" {
		return nil, errors.New("event missing id or user_id")
	}
	if msg.Action != ActionCreated && msg.Action != ActionDeleted {
		return nil, errors.New("unknown event action: " + string(msg.Action))
	}
	return &msg, nil
}
