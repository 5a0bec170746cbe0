// Package smtp implements a Transport that submits messages to an SMTP server.
package smtp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"

	gosmtp "github.com/emersion/go-smtp"
)

// DefaultPort is used when the configured host carries no port.
const DefaultPort = "25"

// Transport sends each message over a fresh SMTP connection.
// It performs no TLS negotiation and no authentication.
type Transport struct {
	// dial opens a client connection, replaceable for testing.
	dial func(addr string) (*gosmtp.Client, error)
}

// New creates an SMTP Transport.
func New() *Transport {
	return &Transport{dial: gosmtp.Dial}
}

// SendMail connects to host, issues MAIL FROM, RCPT TO and DATA for msg,
// then quits. Bare LF line endings in msg are sent as CRLF.
func (t *Transport) SendMail(ctx context.Context, host, from, to string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := Addr(host)
	slog.Debug("connecting to SMTP server", "addr", addr)

	c, err := t.dial(addr)
	if err != nil {
		return fmt.Errorf("connection dial error: %w", err)
	}
	defer c.Close()

	if err := c.SendMail(from, []string{to}, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("send message error: %w", err)
	}

	if err := c.Quit(); err != nil {
		return fmt.Errorf("send command quit error: %w", err)
	}

	slog.Debug("message submitted", "addr", addr, "from", from, "to", to)
	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "smtp"
}

// Addr returns host with DefaultPort appended when it has no port.
func Addr(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, DefaultPort)
}
