// Package mailer renders the account emails and delivers them through the
// currently active SMTP configuration.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/dmitrijs2005/docmark/internal/server/models"
)

// ConfigSource yields the active SMTP configuration or common.ErrorNotFound.
type ConfigSource interface {
	ActiveConfig(ctx context.Context) (*models.SmtpConfig, error)
}

// ConfigSourceFunc adapts a function to ConfigSource.
type ConfigSourceFunc func(ctx context.Context) (*models.SmtpConfig, error)

func (f ConfigSourceFunc) ActiveConfig(ctx context.Context) (*models.SmtpConfig, error) {
	return f(ctx)
}

type Mailer struct {
	sender        Sender
	configs       ConfigSource
	logger        logging.Logger
	resetValidity time.Duration
}

func New(sender Sender, configs ConfigSource, logger logging.Logger, resetValidity time.Duration) *Mailer {
	return &Mailer{sender: sender, configs: configs, logger: logger.With("module", "mailer"), resetValidity: resetValidity}
}

func (m *Mailer) SendVerification(ctx context.Context, u *models.User, link string) error {
	body, err := render(verificationTmpl, linkData{Name: u.Name, Link: link})
	if err != nil {
		return err
	}
	return m.sendActive(ctx, &Message{To: u.Email, Subject: "Confirm your email address", HTML: body})
}

func (m *Mailer) SendApproval(ctx context.Context, u *models.User, link string) error {
	body, err := render(approvalTmpl, linkData{Name: u.Name, Link: link})
	if err != nil {
		return err
	}
	return m.sendActive(ctx, &Message{To: u.Email, Subject: "Your account has been approved", HTML: body})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, u *models.User, link string) error {
	body, err := render(resetTmpl, linkData{Name: u.Name, Link: link, Validity: humanize(m.resetValidity)})
	if err != nil {
		return err
	}
	return m.sendActive(ctx, &Message{To: u.Email, Subject: "Reset your password", HTML: body})
}

// SendTest delivers the settings test email through cfg, which need not be saved.
func (m *Mailer) SendTest(ctx context.Context, cfg *models.SmtpConfig, to string) (*Info, error) {
	body, err := render(testTmpl, cfg)
	if err != nil {
		return nil, err
	}
	info, err := m.sender.Send(ctx, cfg, &Message{To: to, Subject: "SMTP settings test", HTML: body})
	if err != nil {
		m.logger.Error(ctx, "test email failed", "host", cfg.Host, "error", err)
		return nil, err
	}
	m.logger.Info(ctx, "test email sent", "message_id", info.MessageID)
	return info, nil
}

func (m *Mailer) sendActive(ctx context.Context, msg *Message) error {
	cfg, err := m.configs.ActiveConfig(ctx)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrNoActiveSMTP
		}
		return err
	}

	info, err := m.sender.Send(ctx, cfg, msg)
	if err != nil {
		return err
	}

	m.logger.Info(ctx, "email sent", "subject", msg.Subject, "message_id", info.MessageID)
	return nil
}

func humanize(d time.Duration) string {
	switch {
	case d <= 0:
		return "a limited time"
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
