package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/dmitrijs2005/docmark/internal/server/mailer"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/smtpconfigs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSmtp struct {
	smtpconfigs.Repository
	cfgs map[string]*models.SmtpConfig
}

func newMemSmtp(cfgs ...*models.SmtpConfig) *memSmtp {
	m := &memSmtp{cfgs: map[string]*models.SmtpConfig{}}
	for _, c := range cfgs {
		m.cfgs[c.ID] = c
	}
	return m
}

func (m *memSmtp) GetByID(ctx context.Context, id string) (*models.SmtpConfig, error) {
	if c, ok := m.cfgs[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (m *memSmtp) GetActive(ctx context.Context) (*models.SmtpConfig, error) {
	for _, c := range m.cfgs {
		if c.IsActive {
			return c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memSmtp) Create(ctx context.Context, c *models.SmtpConfig) (*models.SmtpConfig, error) {
	c.ID = "new"
	m.cfgs[c.ID] = c
	return c, nil
}

func (m *memSmtp) Update(ctx context.Context, c *models.SmtpConfig) (*models.SmtpConfig, error) {
	m.cfgs[c.ID] = c
	return c, nil
}

func (m *memSmtp) DeactivateOthers(ctx context.Context, exceptID string) error {
	for id, c := range m.cfgs {
		if id != exceptID {
			c.IsActive = false
		}
	}
	return nil
}

type fakeTester struct {
	cfg *models.SmtpConfig
	to  string
	err error
}

func (f *fakeTester) SendTest(ctx context.Context, cfg *models.SmtpConfig, to string) (*mailer.Info, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cfg, f.to = cfg, to
	return &mailer.Info{MessageID: "<m@x>", Response: "250"}, nil
}

func newSmtpService(t *testing.T, repo *memSmtp, tester *fakeTester) (*SmtpService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	return NewSmtpService(db, &fakeRepoManager{s: repo}, tester, logging.Nop()), mock
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestSmtpService_CreateActive(t *testing.T) {
	repo := newMemSmtp(&models.SmtpConfig{ID: "a", IsActive: true})
	s, mock := newSmtpService(t, repo, &fakeTester{})
	mock.ExpectBegin()
	mock.ExpectCommit()

	c, err := s.Create(context.Background(), &models.SmtpConfig{Host: "h", IsActive: true}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", *c.CreatedBy)
	assert.False(t, repo.cfgs["a"].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSmtpService_UpdatePartial(t *testing.T) {
	repo := newMemSmtp(
		&models.SmtpConfig{ID: "a", Host: "old", Port: 465, Secure: true, AuthUser: "u", AuthPass: "p", FromName: "F"},
		&models.SmtpConfig{ID: "b", IsActive: true},
	)
	s, mock := newSmtpService(t, repo, &fakeTester{})
	mock.ExpectBegin()
	mock.ExpectCommit()

	c, err := s.Update(context.Background(), "a", &SmtpPatch{
		Host:     strPtr("new"),
		AuthPass: strPtr(""),
		Secure:   boolPtr(false),
		IsActive: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "new", c.Host)
	assert.Equal(t, 465, c.Port)
	assert.Equal(t, "p", c.AuthPass, "empty password keeps the stored one")
	assert.False(t, c.Secure)
	assert.True(t, c.IsActive)
	assert.False(t, repo.cfgs["b"].IsActive)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = s.Update(context.Background(), "missing", &SmtpPatch{})
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSmtpService_Toggle(t *testing.T) {
	repo := newMemSmtp(&models.SmtpConfig{ID: "a", IsActive: true}, &models.SmtpConfig{ID: "b"})
	s, mock := newSmtpService(t, repo, &fakeTester{})
	mock.ExpectBegin()
	mock.ExpectCommit()

	c, err := s.Toggle(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, c.IsActive)
	assert.False(t, repo.cfgs["a"].IsActive)
}

func TestSmtpService_Tests(t *testing.T) {
	active := &models.SmtpConfig{ID: "a", Host: "smtp.active", IsActive: true}
	tester := &fakeTester{}
	s, _ := newSmtpService(t, newMemSmtp(active), tester)

	info, err := s.TestActive(context.Background(), "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "<m@x>", info.MessageID)
	assert.Equal(t, "smtp.active", tester.cfg.Host)
	assert.Equal(t, "ops@example.com", tester.to)

	_, err = s.Test(context.Background(), &models.SmtpConfig{Host: "smtp.unsaved"}, "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, "smtp.unsaved", tester.cfg.Host)

	none, _ := newSmtpService(t, newMemSmtp(), tester)
	_, err = none.TestActive(context.Background(), "ops@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	tester.err = errBoom{}
	_, err = s.TestActive(context.Background(), "ops@example.com")
	assert.ErrorIs(t, err, errBoom{})
}
