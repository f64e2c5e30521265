package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Info describes an accepted message.
type Info struct {
	MessageID string `json:"messageId"`
	Response  string `json:"response"`
}

// Sender delivers a message through the given SMTP server.
type Sender interface {
	Send(ctx context.Context, cfg *models.SmtpConfig, msg *Message) (*Info, error)
}

// SMTPSender dials the server for every message; the volume is a handful of
// account emails so there is no connection pooling.
type SMTPSender struct {
	timeout time.Duration
}

func NewSMTPSender(timeout time.Duration) *SMTPSender {
	return &SMTPSender{timeout: timeout}
}

// dialAndSend is a seam for tests.
var dialAndSend = func(ctx context.Context, c *mail.Client, m *mail.Msg) error {
	return c.DialAndSendWithContext(ctx, m)
}

func (s *SMTPSender) Send(ctx context.Context, cfg *models.SmtpConfig, msg *Message) (*Info, error) {
	m, id, err := buildMsg(cfg, msg)
	if err != nil {
		return nil, err
	}

	c, err := newClient(cfg, s.timeout)
	if err != nil {
		return nil, err
	}

	if err := dialAndSend(ctx, c, m); err != nil {
		return nil, fmt.Errorf("smtp send: %w", err)
	}

	return &Info{MessageID: id, Response: fmt.Sprintf("250 accepted by %s:%d", cfg.Host, cfg.Port)}, nil
}

func buildMsg(cfg *models.SmtpConfig, msg *Message) (*mail.Msg, string, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(cfg.FromName, cfg.FromEmail); err != nil {
		return nil, "", fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, "", fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	m.SetDate()

	id := fmt.Sprintf("%s@%s", uuid.NewString(), cfg.Host)
	m.SetMessageIDWithValue(id)

	return m, "<" + id + ">", nil
}

func newClient(cfg *models.SmtpConfig, timeout time.Duration) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.AuthUser),
		mail.WithPassword(cfg.AuthPass),
	}
	if timeout > 0 {
		opts = append(opts, mail.WithTimeout(timeout))
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return c, nil
}
