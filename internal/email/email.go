// Package email sends operational mail (the daily compliance digest).
// A SendGrid sender is used when an API key is configured; otherwise the
// console sender logs the message, which is what development wants anyway.
package email

import (
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers a plain-text message to a single recipient.
type Sender interface {
	Send(to, subject, body string) error
}

// ── SendGrid ─────────────────────────────────────────────────────

type sendgridSender struct {
	client   *sendgrid.Client
	from     *sgmail.Email
	subjTag  string
}

// NewSendGridSender builds a Sender backed by the SendGrid v3 API.
func NewSendGridSender(apiKey, fromName, fromAddress string) Sender {
	return &sendgridSender{
		client:  sendgrid.NewSendClient(apiKey),
		from:    sgmail.NewEmail(fromName, fromAddress),
		subjTag: "[" + fromName + "] ",
	}
}

func (s *sendgridSender) Send(to, subject, body string) error {
	msg := sgmail.NewSingleEmail(s.from, s.subjTag+subject, sgmail.NewEmail("", to), body, "")

	resp, err := s.client.Send(msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// ── Console ──────────────────────────────────────────────────────

type consoleSender struct{}

// NewConsoleSender returns a Sender that writes messages to the log.
func NewConsoleSender() Sender {
	return consoleSender{}
}

func (consoleSender) Send(to, subject, body string) error {
	log.Printf("[email] to=%s subject=%q\n%s", to, subject, body)
	return nil
}
