package audit

import (
	"time"

	"github.com/google/uuid"
)

// Record is one append-only audit entry. Every mutating core operation emits
// exactly one record; administrative operations additionally carry the acting
// admin as the actor.
type Record struct {
	ID           uuid.UUID      `json:"id" bson:"_id"`
	ActorID      uuid.UUID      `json:"actor_id" bson:"actor_id"`
	Action       string         `json:"action" bson:"action"`
	ResourceType string         `json:"resource_type" bson:"resource_type"`
	ResourceID   string         `json:"resource_id" bson:"resource_id"`
	Detail       map[string]any `json:"detail,omitempty" bson:"detail,omitempty"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at"`
}

// NewRecord creates an audit record stamped with the current time
func NewRecord(actorID uuid.UUID, action, resourceType, resourceID string, detail map[string]any) *Record {
	return &Record{
		ID:           uuid.New(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Detail:       detail,
		CreatedAt:    time.Now(),
	}
}
