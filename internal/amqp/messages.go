package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"cashbook/internal/store"
)

// ChangeMessage announces a committed write to every instance sharing the
// store. It carries ids only; receivers re-read the collection.
type ChangeMessage struct {
	Collection store.Collection `json:"collection"`
	Op         store.Op         `json:"op"`
	IDs        []string         `json:"ids,omitempty"`
	Origin     string           `json:"origin"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NewChangeMessage stamps c with the publishing instance and the current time.
func NewChangeMessage(c store.Change, origin string) *ChangeMessage {
	return &ChangeMessage{
		Collection: c.Collection,
		Op:         c.Op,
		IDs:        c.IDs,
		Origin:     origin,
		Timestamp:  time.Now(),
	}
}

// Change converts the message back to a store change.
func (m *ChangeMessage) Change() store.Change {
	return store.Change{Collection: m.Collection, Op: m.Op, IDs: m.IDs}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects unknown collections.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := store.Check(msg.Collection); err != nil {
		return nil, err
	}
	switch msg.Op {
	case store.OpInsert, store.OpDelete:
	default:
		return nil, fmt.Errorf("unknown op %q", msg.Op)
	}
	return &msg, nil
}
