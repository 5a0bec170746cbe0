// Package main is the command-line entry point for sending a single message.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shineum/simple-mailer/internal/config"
	"github.com/shineum/simple-mailer/internal/mailer"
	"github.com/shineum/simple-mailer/internal/transport"
	"github.com/shineum/simple-mailer/internal/transport/ses"
	"github.com/shineum/simple-mailer/internal/transport/smtp"
	"github.com/shineum/simple-mailer/internal/transport/stdout"
)

// headerFlags collects repeated -header Key=Value flags.
type headerFlags map[string]string

func (h headerFlags) String() string {
	pairs := make([]string, 0, len(h))
	for k, v := range h {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (h headerFlags) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("header must be Key=Value, got %q", s)
	}
	h[k] = v
	return nil
}

func main() {
	headers := headerFlags{}

	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	from := flag.String("from", "", "From address")
	to := flag.String("to", "", "To address")
	subject := flag.String("subject", "", "message subject")
	body := flag.String("body", "", "message body (read from stdin when empty)")
	strict := flag.Bool("strict", false, "reject header fields containing line breaks")
	flag.Var(headers, "header", "extra header as Key=Value, repeatable; smtp_from and smtp_to set the envelope")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	if *from == "" || *to == "" {
		slog.Error("both -from and -to are required")
		os.Exit(2)
	}

	text := *body
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			slog.Error("failed to read body from stdin", "error", err)
			os.Exit(1)
		}
		text = strings.TrimSuffix(string(data), "\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tr, err := selectTransport(ctx, cfg)
	if err != nil {
		slog.Error("failed to create transport", "error", err)
		os.Exit(1)
	}

	m := mailer.New(mailer.Config{
		Host:      cfg.SMTP.Host,
		TestMode:  cfg.TestMode,
		Transport: tr,
	})

	slog.Info("sending email",
		"transport", tr.Name(),
		"host", m.Host(),
		"test_mode", m.TestMode(),
	)

	send := m.SendEmail
	if *strict {
		send = m.SendEmailStrict
	}

	if err := send(ctx, *from, *to, *subject, text, headers); err != nil {
		var terr *mailer.TransportError
		if errors.As(err, &terr) {
			slog.Error("delivery failed", "transport", terr.Transport, "host", terr.Host, "error", terr.Err)
		} else {
			slog.Error("send failed", "error", err)
		}
		os.Exit(1)
	}

	if m.TestMode() {
		for _, sent := range m.EmailsSent() {
			fmt.Printf("envelope %s -> %s\n%s", sent.From, sent.To, sent.Message)
		}
	}

	slog.Info("email sent")
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectTransport chooses the delivery backend based on configuration.
func selectTransport(ctx context.Context, cfg *config.Config) (transport.Transport, error) {
	switch cfg.Transport {
	case "", "smtp":
		return smtp.New(), nil

	case "ses":
		if !cfg.SESConfigured() {
			return nil, errors.New("SES transport selected but SES_REGION is not set")
		}
		slog.Info("using AWS SES transport", "region", cfg.SES.Region)
		return ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})

	case "stdout":
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
