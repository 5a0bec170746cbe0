// Package stdout implements a Transport that prints messages to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shineum/simple-mailer/internal/email"
)

const separator = "========================================\n"

// Transport prints messages in a human-readable format instead of sending them.
type Transport struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Transport that writes to os.Stdout.
func New() *Transport {
	return &Transport{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Transport that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Transport {
	return &Transport{writer: w}
}

// SendMail prints the envelope and message. It always returns nil.
func (t *Transport) SendMail(_ context.Context, host, from, to string, msg []byte) error {
	var b strings.Builder

	b.WriteString(separator)
	b.WriteString(fmt.Sprintf("Host: %s\n", host))
	b.WriteString(fmt.Sprintf("Envelope: %s -> %s\n", from, to))

	parsed, err := email.Parse(msg)
	if err != nil {
		// Not something we rendered; show it verbatim.
		b.WriteString("Raw:\n")
		b.Write(msg)
	} else {
		b.WriteString(fmt.Sprintf("From: %s\n", parsed.From))
		b.WriteString(fmt.Sprintf("To: %s\n", parsed.To))
		b.WriteString(fmt.Sprintf("Subject: %s\n", parsed.Subject))
		if len(parsed.Headers) > 0 {
			b.WriteString(fmt.Sprintf("Headers: %s\n", formatHeaders(parsed.Headers)))
		}
		b.WriteString("Body:\n")
		b.WriteString(parsed.Body + "\n")
	}

	b.WriteString(separator)

	// The transport contract says stdout always succeeds, so write errors
	// are dropped.
	_, _ = fmt.Fprint(t.writer, b.String())

	return nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "stdout"
}

// formatHeaders renders headers as a sorted "Key=Value" list.
func formatHeaders(headers map[string]string) string {
	pairs := make([]string, 0, len(headers))
	for k, v := range headers {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ", ")
}
