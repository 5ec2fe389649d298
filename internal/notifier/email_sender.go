// Package notifier delivers best-effort transactional emails requested by
// the core over the email topic. Delivery failures are logged and dropped;
// there is no retry beyond the consumer's own redelivery.
package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/novabank/core-banking/internal/config"
	"github.com/novabank/core-banking/internal/domain/shared"
)

// EmailSender delivers one email
type EmailSender interface {
	Send(ctx context.Context, request shared.EmailRequest) error
}

// SMTPSender sends through a plain SMTP relay
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender creates a sender for the configured relay
func NewSMTPSender(cfg *config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		addr: cfg.Addr,
		from: cfg.From,
	}
}

// Send delivers the email. Unauthenticated relay; credentials belong on the
// relay side of the network boundary.
func (s *SMTPSender) Send(ctx context.Context, request shared.EmailRequest) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", request.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", request.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(request.Body)
	msg.WriteString("\r\n")

	if err := smtp.SendMail(s.addr, nil, s.from, []string{request.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", request.To, err)
	}
	return nil
}
