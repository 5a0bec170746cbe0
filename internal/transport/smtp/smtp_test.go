package smtp

import (
	"context"
	"testing"

	gosmtp "github.com/emersion/go-smtp"

	"github.com/shineum/simple-mailer/internal/smtptest"
)

func TestName(t *testing.T) {
	t.Parallel()
	if got := New().Name(); got != "smtp" {
		t.Errorf("Name(): got %q, want %q", got, "smtp")
	}
}

func TestAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host string
		want string
	}{
		{host: "localhost", want: "localhost:25"},
		{host: "mail.example.com", want: "mail.example.com:25"},
		{host: "127.0.0.1:2525", want: "127.0.0.1:2525"},
		{host: "::1", want: "[::1]:25"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			if got := Addr(tt.host); got != tt.want {
				t.Errorf("Addr(%q): got %q, want %q", tt.host, got, tt.want)
			}
		})
	}
}

func TestSendMail_Delivers(t *testing.T) {
	t.Parallel()

	srv := smtptest.NewServer(t)
	tr := New()

	msg := []byte("From: a@x.com\nTo: b@x.com\nSubject: Hi\n\nBody text\n")
	if err := tr.SendMail(context.Background(), srv.Addr, "bounce@x.com", "b@x.com", msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := srv.Deliveries()
	if len(got) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(got))
	}
	if got[0].From != "bounce@x.com" {
		t.Errorf("MAIL FROM: got %q, want %q", got[0].From, "bounce@x.com")
	}
	if len(got[0].To) != 1 || got[0].To[0] != "b@x.com" {
		t.Errorf("RCPT TO: got %v, want [b@x.com]", got[0].To)
	}
	if data := got[0].NormalizedData(); data != string(msg) {
		t.Errorf("DATA:\ngot  %q\nwant %q", data, string(msg))
	}
}

func TestSendMail_RecipientRejected(t *testing.T) {
	t.Parallel()

	srv := smtptest.NewServer(t)
	srv.RejectRecipients()

	err := New().SendMail(context.Background(), srv.Addr, "a@x.com", "b@x.com", []byte("Subject: x\n\nbody\n"))
	if err == nil {
		t.Fatal("expected error for rejected recipient")
	}
	if n := len(srv.Deliveries()); n != 0 {
		t.Errorf("deliveries: got %d, want 0", n)
	}
}

func TestSendMail_ConnectionRefused(t *testing.T) {
	t.Parallel()

	var dialed string
	tr := New()
	inner := tr.dial
	tr.dial = func(addr string) (*gosmtp.Client, error) {
		dialed = addr
		return inner("127.0.0.1:1")
	}

	err := tr.SendMail(context.Background(), "localhost", "a@x.com", "b@x.com", []byte("x\n"))
	if err == nil {
		t.Fatal("expected dial error")
	}
	if dialed != "localhost:25" {
		t.Errorf("dialed: got %q, want %q", dialed, "localhost:25")
	}
}

func TestSendMail_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New()
	called := false
	tr.dial = func(string) (*gosmtp.Client, error) {
		called = true
		return nil, context.Canceled
	}

	if err := tr.SendMail(ctx, "localhost", "a@x.com", "b@x.com", nil); err == nil {
		t.Fatal("expected context error")
	}
	if called {
		t.Error("dial should not be attempted with a cancelled context")
	}
}
