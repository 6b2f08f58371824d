package amqp

import (
	"encoding/json"
	"time"

	"lifeledger/internal/core"
)

// ChangeMessage carries one committed ledger change. Transaction changes
// include the full record so consumers never read back from the ledger.
type ChangeMessage struct {
	Kind        core.ChangeKind   `json:"kind"`
	Entity      string            `json:"entity"`
	EntityID    string            `json:"entityId,omitempty"`
	Version     int64             `json:"version"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewChangeMessage wraps a ledger change for publication.
func NewChangeMessage(c core.Change) *ChangeMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ChangeMessage{
		Kind:        c.Kind,
		Entity:      c.Entity,
		EntityID:    c.EntityID,
		Version:     c.Version,
		Transaction: c.Transaction,
		Timestamp:   ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
