// Package transport defines the interface for message delivery backends.
package transport

import (
	"context"
)

// Transport submits an already rendered message for a single envelope.
// Implementations open and close whatever connection they need per call.
type Transport interface {
	// SendMail delivers msg to host using the given envelope addresses.
	// It returns an error if the connection or submission fails.
	SendMail(ctx context.Context, host, from, to string, msg []byte) error

	// Name returns the human-readable name of this transport.
	Name() string
}
