package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method, path, auth string
	body               map[string]any
}

func newTestAPI(t *testing.T, status int, reply string) (*HTTPClient, *[]recorded) {
	t.Helper()
	var calls []recorded

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			require.NoError(t, json.Unmarshal(b, &rec.body))
		}
		calls = append(calls, rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)

	return NewHTTPClient(srv.URL+"/", time.Second), &calls
}

func TestHTTPClient_LoginStoresToken(t *testing.T) {
	c, calls := newTestAPI(t, http.StatusOK,
		`{"token":"jwt-1","user":{"id":"u1","name":"Root","email":"root@example.com","role":"admin"}}`)

	u, err := c.Login(context.Background(), "root@example.com", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)

	_, err = c.Users(context.Background())
	require.Error(t, err, "login payload is not a list")

	require.Len(t, *calls, 2)
	first, second := (*calls)[0], (*calls)[1]
	assert.Equal(t, "/api/auth/login", first.path)
	assert.Equal(t, "pw", first.body["password"])
	assert.Empty(t, first.auth)
	assert.Equal(t, "Bearer jwt-1", second.auth)
}

func TestHTTPClient_Routes(t *testing.T) {
	ctx := context.Background()

	t.Run("approve", func(t *testing.T) {
		c, calls := newTestAPI(t, http.StatusOK, `{"user":{"id":"u2","isApproved":true}}`)
		u, err := c.Approve(ctx, "u2")
		require.NoError(t, err)
		assert.True(t, u.IsApproved)
		assert.Equal(t, recorded{method: http.MethodPut, path: "/api/auth/users/u2/approve"}, (*calls)[0])
	})

	t.Run("role", func(t *testing.T) {
		c, calls := newTestAPI(t, http.StatusOK, `{"user":{"id":"u2","role":"admin"}}`)
		_, err := c.ChangeRole(ctx, "u2", "admin")
		require.NoError(t, err)
		assert.Equal(t, "/api/auth/users/u2/role", (*calls)[0].path)
		assert.Equal(t, "admin", (*calls)[0].body["role"])
	})

	t.Run("delete one", func(t *testing.T) {
		c, calls := newTestAPI(t, http.StatusOK, `{"message":"User deleted"}`)
		n, err := c.Delete(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, "/api/auth/users/u2", (*calls)[0].path)
	})

	t.Run("delete many", func(t *testing.T) {
		c, calls := newTestAPI(t, http.StatusOK, `{"message":"Users deleted","deleted":2}`)
		n, err := c.Delete(ctx, "u2", "u3")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.Equal(t, http.MethodDelete, (*calls)[0].method)
		assert.Equal(t, []any{"u2", "u3"}, (*calls)[0].body["ids"])
	})
}

func TestHTTPClient_Errors(t *testing.T) {
	ctx := context.Background()

	c, _ := newTestAPI(t, http.StatusForbidden, `{"message":"not approved"}`)
	_, err := c.Me(ctx)
	assert.ErrorIs(t, err, ErrForbidden)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "not approved", apiErr.Message)

	c, _ = newTestAPI(t, http.StatusUnauthorized, `{"message":"invalid token"}`)
	_, err = c.Users(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	c, _ = newTestAPI(t, http.StatusBadRequest, `{"message":"cannot delete your own account"}`)
	_, err = c.Delete(ctx, "me")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "400: cannot delete your own account", err.Error())

	c, _ = newTestAPI(t, http.StatusBadGateway, `<html>`)
	_, err = c.Users(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Message)

	down := NewHTTPClient("http://127.0.0.1:1", 100*time.Millisecond)
	_, err = down.Users(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}
