package amqp

import (
	"encoding/json"
	"time"
)

const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// TransactionChangedMessage tells the snapshot worker that the transaction
// history changed. It carries only the ID and operation; the worker reloads
// everything it needs from storage.
type TransactionChangedMessage struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionChangedMessage(id, op string) *TransactionChangedMessage {
	return &TransactionChangedMessage{
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *TransactionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionChangedMessageFromJSON(data []byte) (*TransactionChangedMessage, error) {
	var msg TransactionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
