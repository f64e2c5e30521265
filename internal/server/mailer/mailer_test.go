package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeSender struct {
	cfg  *models.SmtpConfig
	msgs []*Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, cfg *models.SmtpConfig, msg *Message) (*Info, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cfg = cfg
	f.msgs = append(f.msgs, msg)
	return &Info{MessageID: "<id@test>", Response: "250 ok"}, nil
}

type fakeConfigs struct {
	cfg *models.SmtpConfig
	err error
}

func (f *fakeConfigs) ActiveConfig(ctx context.Context) (*models.SmtpConfig, error) {
	return f.cfg, f.err
}

func activeCfg() *models.SmtpConfig {
	return &models.SmtpConfig{Host: "smtp.example.com", Port: 465, Secure: true, AuthUser: "bot", AuthPass: "pw",
		FromEmail: "bot@example.com", FromName: "Docmark"}
}

func TestMailer_AccountEmails(t *testing.T) {
	s := &fakeSender{}
	m := New(s, &fakeConfigs{cfg: activeCfg()}, logging.Nop(), time.Hour)
	u := &models.User{Name: "Alice <admin>", Email: "alice@example.com"}
	ctx := context.Background()

	require.NoError(t, m.SendVerification(ctx, u, "http://host/verify-email/tok"))
	require.NoError(t, m.SendApproval(ctx, u, "http://host/login"))
	require.NoError(t, m.SendPasswordReset(ctx, u, "http://host/reset-password/rt"))

	require.Len(t, s.msgs, 3)
	assert.Equal(t, "smtp.example.com", s.cfg.Host)
	for _, msg := range s.msgs {
		assert.Equal(t, "alice@example.com", msg.To)
		assert.Contains(t, msg.HTML, "Alice &lt;admin&gt;")
	}
	assert.Contains(t, s.msgs[0].HTML, `href="http://host/verify-email/tok"`)
	assert.Contains(t, s.msgs[1].HTML, `href="http://host/login"`)
	assert.Contains(t, s.msgs[2].HTML, "valid for 1 hour")
}

func TestMailer_NoActiveConfig(t *testing.T) {
	m := New(&fakeSender{}, &fakeConfigs{err: common.ErrorNotFound}, logging.Nop(), time.Hour)

	err := m.SendVerification(context.Background(), &models.User{Email: "a@example.com"}, "l")
	assert.ErrorIs(t, err, common.ErrNoActiveSMTP)
}

func TestConfigSourceFunc(t *testing.T) {
	calls := 0
	src := ConfigSourceFunc(func(ctx context.Context) (*models.SmtpConfig, error) {
		calls++
		return activeCfg(), nil
	})
	s := &fakeSender{}
	m := New(s, src, logging.Nop(), time.Hour)

	require.NoError(t, m.SendApproval(context.Background(), &models.User{Email: "a@example.com"}, "l"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "bot@example.com", s.cfg.FromEmail)
}

func TestMailer_SenderFailure(t *testing.T) {
	m := New(&fakeSender{err: errors.New("refused")}, &fakeConfigs{cfg: activeCfg()}, logging.Nop(), time.Hour)

	err := m.SendPasswordReset(context.Background(), &models.User{Email: "a@example.com"}, "l")
	assert.ErrorContains(t, err, "refused")
}

func TestMailer_SendTest(t *testing.T) {
	s := &fakeSender{}
	m := New(s, &fakeConfigs{err: errors.New("unused")}, logging.Nop(), time.Hour)

	info, err := m.SendTest(context.Background(), activeCfg(), "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "<id@test>", info.MessageID)
	assert.Contains(t, s.msgs[0].HTML, "Host: smtp.example.com")
	assert.Contains(t, s.msgs[0].HTML, "Secure connection: yes")
	assert.NotContains(t, s.msgs[0].HTML, "pw")
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "1 hour", humanize(time.Hour))
	assert.Equal(t, "2 hours", humanize(2*time.Hour))
	assert.Equal(t, "30 minutes", humanize(30*time.Minute))
	assert.Equal(t, "1m30s", humanize(90*time.Second))
	assert.Equal(t, "a limited time", humanize(0))
}

func TestSMTPSender_Send(t *testing.T) {
	orig := dialAndSend
	t.Cleanup(func() { dialAndSend = orig })

	var sent *mail.Msg
	dialAndSend = func(ctx context.Context, c *mail.Client, m *mail.Msg) error {
		sent = m
		return nil
	}

	info, err := NewSMTPSender(5*time.Second).Send(context.Background(), activeCfg(),
		&Message{To: "alice@example.com", Subject: "Hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	require.NotNil(t, sent)

	assert.True(t, strings.HasPrefix(info.MessageID, "<") && strings.HasSuffix(info.MessageID, "@smtp.example.com>"))
	rcpts, err := sent.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, rcpts)
	assert.Equal(t, []string{"Hi"}, sent.GetGenHeader(mail.HeaderSubject))
}

func TestSMTPSender_SendFailure(t *testing.T) {
	orig := dialAndSend
	t.Cleanup(func() { dialAndSend = orig })
	dialAndSend = func(ctx context.Context, c *mail.Client, m *mail.Msg) error {
		return errors.New("connection refused")
	}

	cfg := activeCfg()
	cfg.Secure = false
	_, err := NewSMTPSender(0).Send(context.Background(), cfg, &Message{To: "a@example.com", Subject: "s", HTML: "b"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestSMTPSender_BadRecipient(t *testing.T) {
	_, err := NewSMTPSender(0).Send(context.Background(), activeCfg(), &Message{To: "not an address"})
	assert.ErrorContains(t, err, "to address")
}
