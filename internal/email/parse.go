package email

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"strings"
)

// Parse reads a message produced by Render back into a Message.
// Header names other than From, To and Subject are returned in canonical
// MIME form, and repeated headers keep their last value. The single
// trailing line ending added by Render is removed from the body.
func Parse(raw []byte) (*Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}

	result := &Message{
		From:    msg.Header.Get("From"),
		To:      msg.Header.Get("To"),
		Subject: msg.Header.Get("Subject"),
		Body:    trimLineEnding(string(body)),
		Headers: make(map[string]string),
	}

	for key, values := range msg.Header {
		switch key {
		case "From", "To", "Subject":
			continue
		}
		if len(values) > 0 {
			result.Headers[key] = values[len(values)-1]
		}
	}

	return result, nil
}

func trimLineEnding(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	return strings.TrimSuffix(s, "\n")
}
