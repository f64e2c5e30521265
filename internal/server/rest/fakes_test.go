package rest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/dmitrijs2005/docmark/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	alice = &models.User{ID: "u-alice", Name: "Alice", Email: "alice@example.com", Role: common.RoleUser, IsVerified: true, IsApproved: true}
	root  = &models.User{ID: "u-root", Name: "Root", Email: "root@example.com", Role: common.RoleAdmin, IsVerified: true, IsApproved: true}
)

// fakeUsers resolves tokens through sessions. Unknown tokens fail with
// authErr, or common.ErrInvalidToken when it is nil.
type fakeUsers struct {
	UserAPI

	sessions map[string]*models.User
	authErr  error

	registered  []string
	registerErr error
	loginErr    error
	resetErr    error
	verifyErr   error
	deleted     []string
	deleteErr   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{sessions: map[string]*models.User{"alice-token": alice, "root-token": root}}
}

func (f *fakeUsers) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if u, ok := f.sessions[token]; ok && u != nil {
		return u, nil
	}
	if f.authErr != nil {
		return nil, f.authErr
	}
	return nil, common.ErrInvalidToken
}

func (f *fakeUsers) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered = append(f.registered, email)
	return &models.User{ID: "new", Name: name, Email: email, Role: common.RoleUser}, nil
}

func (f *fakeUsers) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return alice, nil
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.LoginResult{Token: "jwt", User: alice.Ref()}, nil
}

func (f *fakeUsers) RequestPasswordReset(ctx context.Context, email string) error {
	return f.resetErr
}

func (f *fakeUsers) ListUsers(ctx context.Context) ([]*models.User, error) {
	return []*models.User{root, alice}, nil
}

func (f *fakeUsers) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return common.ErrSelfDelete
	}
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeUsers) DeleteUsers(ctx context.Context, actorID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, common.ErrNoIDs
	}
	for _, id := range ids {
		if id == actorID {
			return 0, common.ErrSelfDelete
		}
	}
	f.deleted = append(f.deleted, ids...)
	return int64(len(ids)), nil
}

type fakeSettings struct {
	SettingsAPI
	url string
}

func (f *fakeSettings) ServerURL() string { return f.url }

func (f *fakeSettings) SetServerURL(ctx context.Context, url string) error {
	f.url = url
	return nil
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

func newTestServer(t *testing.T, deps Deps) *HTTPServer {
	t.Helper()
	if deps.Users == nil {
		deps.Users = newFakeUsers()
	}
	if deps.Settings == nil {
		deps.Settings = &fakeSettings{url: "http://app.test"}
	}
	if deps.MaxUploadSize == 0 {
		deps.MaxUploadSize = 1 << 20
	}
	if deps.MaxUploadFiles == 0 {
		deps.MaxUploadFiles = 2
	}
	s, err := NewHTTPServer(":0", logging.Nop(), deps)
	require.NoError(t, err)
	return s
}

func newRequest(method, path string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, path, body)
}

func serve(s *HTTPServer, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// do sends body encoded as JSON.
func do(t *testing.T, s *HTTPServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := newRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return serve(s, req)
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Message
}
