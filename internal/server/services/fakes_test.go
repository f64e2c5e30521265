package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/dbx"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/smtpconfigs"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type fakeRepoManager struct {
	u users.Repository
	d documents.Repository
	k apikeys.Repository
	s smtpconfigs.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.u }
func (m *fakeRepoManager) Documents(dbx.DBTX) documents.Repository      { return m.d }
func (m *fakeRepoManager) ApiKeys(dbx.DBTX) apikeys.Repository          { return m.k }
func (m *fakeRepoManager) SmtpConfigs(dbx.DBTX) smtpconfigs.Repository  { return m.s }

// memUsers is an in-memory users.Repository with the same matching rules as
// the Postgres one.
type memUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]*models.User
	err   error
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*models.User{}}
}

func (m *memUsers) put(u *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		m.seq++
		u.ID = fmt.Sprintf("u%d", m.seq)
	}
	m.users[u.ID] = u
	return u
}

func (m *memUsers) get(id string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func clone(u *models.User) *models.User {
	c := *u
	return &c
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	for _, x := range m.users {
		if x.Email == u.Email {
			m.mu.Unlock()
			return nil, common.ErrorAlreadyExists
		}
	}
	m.mu.Unlock()
	u.CreatedAt = time.Now()
	return clone(m.put(clone(u))), nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u := m.get(id); u != nil {
		return clone(u), nil
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) List(ctx context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, clone(u))
	}
	return out, m.err
}

func (m *memUsers) MarkVerifiedByToken(ctx context.Context, token string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			u.IsVerified = true
			u.VerificationToken = nil
			return clone(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) SetVerified(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	if u == nil || u.IsVerified {
		return common.ErrorNotFound
	}
	u.IsVerified = true
	u.VerificationToken = nil
	return nil
}

func (m *memUsers) SetApproved(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	if u == nil || u.IsApproved {
		return common.ErrorNotFound
	}
	u.IsApproved = true
	return nil
}

func (m *memUsers) SetRole(ctx context.Context, id, role string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	if u == nil {
		return nil, common.ErrorNotFound
	}
	u.Role = role
	return clone(u), nil
}

func (m *memUsers) EnsureAdmin(ctx context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	if u == nil {
		return common.ErrorNotFound
	}
	u.Role = common.RoleAdmin
	u.IsVerified = true
	u.IsApproved = true
	u.VerificationToken = nil
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users[id] == nil {
		return common.ErrorNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if m.users[id] != nil {
			delete(m.users, id)
			n++
		}
	}
	return n, nil
}

func (m *memUsers) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	if u == nil {
		return common.ErrorNotFound
	}
	u.ResetPasswordToken = &token
	u.ResetPasswordExpires = &expires
	return nil
}

func (m *memUsers) ClearResetToken(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	if u != nil && u.ResetPasswordToken != nil && *u.ResetPasswordToken == token {
		u.ResetPasswordToken = nil
		u.ResetPasswordExpires = nil
	}
	return nil
}

func (m *memUsers) ResetPassword(ctx context.Context, token, hash string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == token && u.ResetPasswordExpires.After(now) {
			u.PasswordHash = hash
			u.ResetPasswordToken = nil
			u.ResetPasswordExpires = nil
			return u.ID, nil
		}
	}
	return "", common.ErrorNotFound
}

func (m *memUsers) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.ResetPasswordExpires != nil && !u.ResetPasswordExpires.After(now) {
			u.ResetPasswordToken = nil
			u.ResetPasswordExpires = nil
			n++
		}
	}
	return n, nil
}

type sentMail struct {
	kind string
	to   string
	link string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) record(kind string, u *models.User, link string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: kind, to: u.Email, link: link})
	return nil
}

func (f *fakeMailer) SendVerification(ctx context.Context, u *models.User, link string) error {
	return f.record("verification", u, link)
}

func (f *fakeMailer) SendApproval(ctx context.Context, u *models.User, link string) error {
	return f.record("approval", u, link)
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, u *models.User, link string) error {
	return f.record("reset", u, link)
}

type staticURL string

func (s staticURL) ServerURL() string { return string(s) }
