// Package smtptest provides a loopback SMTP server for tests.
package smtptest

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	gosmtp "github.com/emersion/go-smtp"
)

// Delivery is a single message accepted by the Server.
type Delivery struct {
	From string
	To   []string
	// Data is the message as received, with CRLF line endings.
	Data string
}

// Server records every message it accepts. Set RejectRcpt to make it
// refuse recipients with a permanent error.
type Server struct {
	Addr string

	mu         sync.Mutex
	deliveries []Delivery
	rejectRcpt bool

	srv *gosmtp.Server
}

// NewServer starts a Server on 127.0.0.1 and closes it when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	s := &Server{Addr: ln.Addr().String()}
	s.srv = gosmtp.NewServer(&backend{server: s})
	s.srv.Domain = "localhost"

	go func() {
		_ = s.srv.Serve(ln)
	}()
	t.Cleanup(func() {
		s.srv.Close()
	})

	return s
}

// RejectRecipients makes subsequent RCPT TO commands fail.
func (s *Server) RejectRecipients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectRcpt = true
}

// Deliveries returns a copy of the accepted messages.
func (s *Server) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}

// NormalizedData returns Data with CRLF replaced by LF.
func (d Delivery) NormalizedData() string {
	return strings.ReplaceAll(d.Data, "\r\n", "\n")
}

type backend struct {
	server *Server
}

func (b *backend) NewSession(_ *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{server: b.server}, nil
}

type session struct {
	server *Server
	from   string
	to     []string
}

func (s *session) Mail(from string, _ *gosmtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	s.server.mu.Lock()
	reject := s.server.rejectRcpt
	s.server.mu.Unlock()

	if reject {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "mailbox unavailable",
		}
	}
	s.to = append(s.to, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(s.to) == 0 {
		return errors.New("no recipients")
	}

	s.server.mu.Lock()
	s.server.deliveries = append(s.server.deliveries, Delivery{
		From: s.from,
		To:   append([]string(nil), s.to...),
		Data: string(data),
	})
	s.server.mu.Unlock()
	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

func (s *session) Logout() error {
	return nil
}
