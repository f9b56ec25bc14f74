// Package alerting notifies operators about ledger states that need a human,
// such as a transfer whose compensation failed.
package alerting

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"
)

// Alerter delivers an operator alert.
type Alerter interface {
	Alert(ctx context.Context, subject, body string) error
}

// Config holds SMTP settings for EmailAlerter.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Enabled reports whether enough settings are present to send mail.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Host) != "" && strings.TrimSpace(c.From) != "" && len(c.To) > 0
}

type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// EmailAlerter sends alerts via SMTP.
type EmailAlerter struct {
	cfg    Config
	logger zerolog.Logger
	send   sendFunc
}

// NewEmailAlerter creates an SMTP alerter.
func NewEmailAlerter(cfg Config, logger zerolog.Logger) *EmailAlerter {
	return &EmailAlerter{
		cfg:    cfg,
		logger: logger.With().Str("component", "alerting").Logger(),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// New returns an EmailAlerter when cfg is usable, a log-only alerter otherwise.
func New(cfg Config, logger zerolog.Logger) Alerter {
	if !cfg.Enabled() {
		return NewLogAlerter(logger)
	}
	return NewEmailAlerter(cfg, logger)
}

func (a *EmailAlerter) Alert(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = a.cfg.From
	e.To = a.cfg.To
	e.Subject = "[ledger] " + subject
	e.Text = []byte(body)

	port := a.cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", a.cfg.Host, port)
	var auth smtp.Auth
	if a.cfg.Username != "" {
		auth = smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.Host)
	}

	if err := a.send(e, addr, auth); err != nil {
		a.logger.Error().Err(err).Strs("to", a.cfg.To).Str("subject", subject).Msg("failed to send alert email")
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	a.logger.Info().Strs("to", a.cfg.To).Str("subject", subject).Msg("alert email sent")
	return nil
}

// LogAlerter writes alerts to the log only.
type LogAlerter struct {
	logger zerolog.Logger
}

func NewLogAlerter(logger zerolog.Logger) *LogAlerter {
	return &LogAlerter{logger: logger.With().Str("component", "alerting").Logger()}
}

func (a *LogAlerter) Alert(ctx context.Context, subject, body string) error {
	a.logger.Error().Str("subject", subject).Str("body", body).Msg("operator alert")
	return nil
}
