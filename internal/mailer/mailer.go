// Package mailer formats simple email messages and hands them to a transport,
// or records them in memory while in test mode.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shineum/simple-mailer/internal/email"
	"github.com/shineum/simple-mailer/internal/transport"
	"github.com/shineum/simple-mailer/internal/transport/smtp"
)

// DefaultHost is the SMTP host used until Configure is called.
const DefaultHost = "localhost"

// Config holds the initial state for a Mailer.
type Config struct {
	// Host is the SMTP host. Empty means DefaultHost.
	Host string

	// TestMode starts the Mailer in test mode.
	TestMode bool

	// Transport delivers messages outside test mode. Nil means SMTP.
	Transport transport.Transport
}

// SentEmail is a message captured in test mode.
type SentEmail struct {
	// Message is the rendered message text.
	Message string
	From    string
	To      string
}

// TransportError is returned when delivery through the transport fails.
// Connection failures and server rejections are not distinguished.
type TransportError struct {
	Transport string
	Host      string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport to %s: %v", e.Transport, e.Host, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Mailer sends messages. It is safe for concurrent use.
//
// Test mode is one-way: once enabled it stays on, and enabling it again
// only clears the sent-email record.
type Mailer struct {
	transport transport.Transport

	mu         sync.RWMutex
	host       string
	testMode   bool
	emailsSent []SentEmail
}

// New creates a Mailer from cfg.
func New(cfg Config) *Mailer {
	tr := cfg.Transport
	if tr == nil {
		tr = smtp.New()
	}

	m := &Mailer{transport: tr}
	m.Configure(cfg.Host)
	if cfg.TestMode {
		m.EnableTestMode()
	}
	return m
}

// Configure sets the SMTP host. An empty host restores DefaultHost.
func (m *Mailer) Configure(host string) {
	if host == "" {
		host = DefaultHost
	}

	m.mu.Lock()
	m.host = host
	m.mu.Unlock()
}

// Host returns the configured SMTP host.
func (m *Mailer) Host() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.host
}

// EnableTestMode clears the sent-email record and turns on test mode.
// While in test mode no message leaves the process.
func (m *Mailer) EnableTestMode() {
	m.mu.Lock()
	m.emailsSent = []SentEmail{}
	m.testMode = true
	m.mu.Unlock()
}

// TestMode reports whether test mode is on.
func (m *Mailer) TestMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.testMode
}

// EmailsSent returns a copy of the messages recorded in test mode, oldest first.
func (m *Mailer) EmailsSent() []SentEmail {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SentEmail, len(m.emailsSent))
	copy(out, m.emailsSent)
	return out
}

// SendEmail renders a message and dispatches it. headers may be nil and
// may contain email.HeaderSMTPFrom or email.HeaderSMTPTo to override the
// envelope; those keys are never rendered and headers is not modified.
//
// from, to, subject and headers must not contain line breaks. They are not
// escaped, so unchecked input allows header injection. SendEmailStrict
// checks them first.
func (m *Mailer) SendEmail(ctx context.Context, from, to, subject, body string, headers map[string]string) error {
	msg := &email.Message{
		From:    from,
		To:      to,
		Subject: subject,
		Body:    body,
		Headers: headers,
	}
	return m.send(ctx, msg)
}

// SendEmailStrict is SendEmail with input validation. It returns an error
// wrapping email.ErrHeaderInjection, without sending, if any header field
// contains a line break.
func (m *Mailer) SendEmailStrict(ctx context.Context, from, to, subject, body string, headers map[string]string) error {
	msg := &email.Message{
		From:    from,
		To:      to,
		Subject: subject,
		Body:    body,
		Headers: headers,
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	return m.send(ctx, msg)
}

func (m *Mailer) send(ctx context.Context, msg *email.Message) error {
	env := msg.Envelope()
	rendered := msg.Render()

	m.mu.Lock()
	if m.testMode {
		m.emailsSent = append(m.emailsSent, SentEmail{
			Message: string(rendered),
			From:    env.From,
			To:      env.To,
		})
		m.mu.Unlock()
		slog.Debug("recorded email in test mode", "from", env.From, "to", env.To)
		return nil
	}
	host := m.host
	m.mu.Unlock()

	slog.Debug("sending email",
		"transport", m.transport.Name(),
		"host", host,
		"from", env.From,
		"to", env.To,
	)

	if err := m.transport.SendMail(ctx, host, env.From, env.To, rendered); err != nil {
		slog.Error("email delivery failed",
			"transport", m.transport.Name(),
			"host", host,
			"error", err,
		)
		return &TransportError{
			Transport: m.transport.Name(),
			Host:      host,
			Err:       err,
		}
	}

	return nil
}
