package events

import (
	"encoding/json"
	"time"
)

// Entity and action names carried by change events.
const (
	EntityTransaction = "transaction"
	EntityBudget      = "budget"
	EntityRecurring   = "recurring"

	ActionCreated      = "created"
	ActionDeleted      = "deleted"
	ActionUpserted     = "upserted"
	ActionMaterialized = "materialized"
)

// ChangeMessage announces that an owner's data changed. Consumers refresh
// from the store; the message deliberately carries no payload beyond the
// record id.
type ChangeMessage struct {
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	OwnerID   string    `json:"owner_id"`
	RecordID  string    `json:"record_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage builds a change message stamped with the current time.
func NewChangeMessage(entity, action, ownerID, recordID string) *ChangeMessage {
	return &ChangeMessage{
		Entity:    entity,
		Action:    action,
		OwnerID:   ownerID,
		RecordID:  recordID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
