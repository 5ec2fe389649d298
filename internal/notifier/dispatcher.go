package notifier

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/novabank/core-banking/internal/domain/shared"
	"github.com/novabank/core-banking/internal/platform/messaging/consumers"
)

// Dispatcher consumes email requests and hands them to the sender
type Dispatcher struct {
	consumer consumers.Consumer
	sender   EmailSender
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given consumer and sender
func NewDispatcher(logger *slog.Logger, consumer consumers.Consumer, sender EmailSender) *Dispatcher {
	return &Dispatcher{
		consumer: consumer,
		sender:   sender,
		logger:   logger,
	}
}

// Start subscribes to the email topic. Returns once the subscription is
// registered; message handling runs until the context is canceled.
func (d *Dispatcher) Start(ctx context.Context, topic, groupID string) error {
	return d.consumer.Subscribe(ctx, topic, groupID, d.handle)
}

// handle processes one email request. Always returns nil: email is
// best-effort and a poison message must not wedge the partition.
func (d *Dispatcher) handle(ctx context.Context, key []byte, value []byte) error {
	var request shared.EmailRequest
	if err := json.Unmarshal(value, &request); err != nil {
		d.logger.Error("Failed to decode email request, dropping", "key", string(key), "error", err)
		return nil
	}
	if request.To == "" {
		d.logger.Warn("Email request without recipient, dropping", "reference", request.Reference)
		return nil
	}

	if err := d.sender.Send(ctx, request); err != nil {
		d.logger.Error("Failed to deliver email, dropping",
			"reference", request.Reference,
			"user_id", request.UserID.String(),
			"error", err,
		)
		return nil
	}

	d.logger.Info("Email delivered", "reference", request.Reference, "user_id", request.UserID.String())
	return nil
}
