// Package email defines the message model and its plain-text rendering.
package email

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Reserved header keys that select the SMTP envelope instead of being rendered.
const (
	HeaderSMTPFrom = "smtp_from"
	HeaderSMTPTo   = "smtp_to"
)

// ErrHeaderInjection is returned by Validate when a field would break out of
// its header line.
var ErrHeaderInjection = errors.New("line break in header field")

// Message is a simple single-recipient email.
//
// The caller is responsible for ensuring that From, To, Subject and Headers
// contain no carriage returns or line feeds. Render does not escape them, so
// unchecked input can inject arbitrary headers or body content. Use Validate
// to check explicitly.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string

	// Headers holds extra header lines. It may contain the reserved keys
	// HeaderSMTPFrom and HeaderSMTPTo.
	Headers map[string]string
}

// Envelope holds the SMTP MAIL FROM and RCPT TO addresses.
type Envelope struct {
	From string
	To   string
}

// Overrides holds the reserved header values found by SplitHeaders.
type Overrides struct {
	From    string
	HasFrom bool
	To      string
	HasTo   bool
}

// SplitHeaders partitions headers into the envelope overrides and the
// headers that should be rendered. The input map is not modified.
func SplitHeaders(headers map[string]string) (Overrides, map[string]string) {
	var o Overrides
	rest := make(map[string]string, len(headers))

	for k, v := range headers {
		switch k {
		case HeaderSMTPFrom:
			o.From, o.HasFrom = v, true
		case HeaderSMTPTo:
			o.To, o.HasTo = v, true
		default:
			rest[k] = v
		}
	}

	return o, rest
}

// Envelope returns the SMTP envelope for the message. A present reserved
// header wins even when empty, since an empty MAIL FROM is the null
// reverse-path.
func (m *Message) Envelope() Envelope {
	o, _ := SplitHeaders(m.Headers)

	env := Envelope{From: m.From, To: m.To}
	if o.HasFrom {
		env.From = o.From
	}
	if o.HasTo {
		env.To = o.To
	}
	return env
}

// Render formats the message as LF-terminated text:
//
//	From: <from>
//	To: <to>
//	Subject: <subject>
//	<Key: Value lines sorted by key>
//
//	<body>
//
// Reserved headers are never rendered.
func (m *Message) Render() []byte {
	_, headers := SplitHeaders(m.Headers)

	var b strings.Builder
	b.WriteString("From: " + m.From + "\n")
	b.WriteString("To: " + m.To + "\n")
	b.WriteString("Subject: " + m.Subject + "\n")

	for _, k := range sortedKeys(headers) {
		b.WriteString(k + ": " + headers[k] + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.Body + "\n")

	return []byte(b.String())
}

// Validate reports ErrHeaderInjection if any header field contains CR or LF,
// or if a header name contains a colon. The body is not checked.
func (m *Message) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"From", m.From},
		{"To", m.To},
		{"Subject", m.Subject},
	}
	for _, f := range fields {
		if hasLineBreak(f.value) {
			return fmt.Errorf("%s: %w", f.name, ErrHeaderInjection)
		}
	}

	for _, k := range sortedKeys(m.Headers) {
		if hasLineBreak(k) || strings.Contains(k, ":") {
			return fmt.Errorf("header name %q: %w", k, ErrHeaderInjection)
		}
		if hasLineBreak(m.Headers[k]) {
			return fmt.Errorf("header %s: %w", k, ErrHeaderInjection)
		}
	}

	return nil
}

func hasLineBreak(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
