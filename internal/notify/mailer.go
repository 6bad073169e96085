// Package notify delivers transactional email.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Message is a rendered email ready to send.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ResendMailer sends mail through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer creates a Resend client. httpClient may be nil.
func NewResendMailer(apiKey, from string, httpClient *http.Client) *ResendMailer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ResendMailer{
		client: resend.NewCustomClient(httpClient, apiKey),
		from:   from,
	}
}

// WithBaseURL points the client at another API host.
func (m *ResendMailer) WithBaseURL(baseURL string) (*ResendMailer, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing resend base URL: %w", err)
	}
	m.client.BaseURL = u
	return m, nil
}

// Send delivers msg through Resend.
func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

// LogMailer only logs messages. It is used when no email provider is configured.
type LogMailer struct {
	log *zap.SugaredLogger
}

// NewLogMailer creates a LogMailer writing to log.
func NewLogMailer(log *zap.SugaredLogger) *LogMailer {
	return &LogMailer{log: log}
}

// Send logs the message envelope.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Infow("email not sent, no provider configured", "to", msg.To, "subject", msg.Subject)
	return nil
}
