package shared

import (
	"time"

	"github.com/google/uuid"
)

// EventType names the transfer lifecycle notifications emitted to the
// pub/sub collaborator
type EventType string

const (
	EventTransferCompleted EventType = "TRANSFER_COMPLETED"
	EventTransferReversed  EventType = "TRANSFER_REVERSED"
	EventTransferRejected  EventType = "TRANSFER_REJECTED"
	EventTransferEdited    EventType = "TRANSFER_EDITED"
)

// NotificationEvent is the outbound status notification. Delivery is
// fire-and-forget; failure to publish never affects ledger state.
type NotificationEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	EventType EventType `json:"event_type"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Reference string    `json:"reference"`
	Timestamp time.Time `json:"timestamp"`
}

// EmailRequest asks the notifier to send a best-effort transactional email
type EmailRequest struct {
	UserID    uuid.UUID `json:"user_id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Reference string    `json:"reference"`
	Timestamp time.Time `json:"timestamp"`
}
