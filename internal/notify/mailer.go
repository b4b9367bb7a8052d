package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/zeyuan/appeal-service/internal/config"
)

// Message is one outgoing e-mail.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridMailer delivers through the SendGrid v3 mail send API.
type SendGridMailer struct {
	apiKey    string
	host      string
	fromEmail string
	fromName  string
}

// NewSendGridMailer builds a mailer from config.
func NewSendGridMailer(cfg config.MailConfig) *SendGridMailer {
	return &SendGridMailer{apiKey: cfg.SendGridAPIKey, host: cfg.APIHost, fromEmail: cfg.FromEmail, fromName: cfg.FromName}
}

// Send posts the message and treats any 4xx/5xx as failure.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	payload := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	req := sendgrid.GetRequest(m.apiKey, "/v3/mail/send", m.host)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(payload)
	resp, errSend := sendgrid.MakeRequestWithContext(ctx, req)
	if errSend != nil {
		return fmt.Errorf("notify: send mail: %w", errSend)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
