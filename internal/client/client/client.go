package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docmark/internal/client/models"
	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/goccy/go-json"
)

// Client is the subset of the docmark API the admin console drives.
type Client interface {
	Login(ctx context.Context, email string, password []byte) (*models.User, error)
	Me(ctx context.Context) (*models.User, error)
	Users(ctx context.Context) ([]*models.User, error)
	Approve(ctx context.Context, id string) (*models.User, error)
	Verify(ctx context.Context, id string) (*models.User, error)
	ChangeRole(ctx context.Context, id, role string) (*models.User, error)
	Delete(ctx context.Context, ids ...string) (int64, error)
}

// HTTPClient talks JSON to the docmark API and keeps the session token of
// the last successful login.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type userEnvelope struct {
	User *models.User `json:"user"`
}

func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (*models.User, error) {
	body := map[string]string{"email": email, "password": string(password)}

	var s models.Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &s); err != nil {
		return nil, err
	}

	c.token = s.Token
	return &s.User, nil
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *HTTPClient) Users(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *HTTPClient) Approve(ctx context.Context, id string) (*models.User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/auth/users/"+id+"/approve", nil, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *HTTPClient) Verify(ctx context.Context, id string) (*models.User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/auth/users/"+id+"/verify", nil, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *HTTPClient) ChangeRole(ctx context.Context, id, role string) (*models.User, error) {
	var env userEnvelope
	body := map[string]string{"role": role}
	if err := c.do(ctx, http.MethodPut, "/api/auth/users/"+id+"/role", body, &env); err != nil {
		return nil, err
	}
	return env.User, nil
}

// Delete removes one account through the single-user route, several through
// the bulk route.
func (c *HTTPClient) Delete(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 1 {
		if err := c.do(ctx, http.MethodDelete, "/api/auth/users/"+ids[0], nil, nil); err != nil {
			return 0, err
		}
		return 1, nil
	}

	var res struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/auth/users", map[string][]string{"ids": ids}, &res); err != nil {
		return 0, err
	}
	return res.Deleted, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return mapError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func mapError(status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	apiErr := &APIError{Status: status, Message: payload.Message}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	switch status {
	case http.StatusUnauthorized:
		return errors.Join(ErrUnauthorized, apiErr)
	case http.StatusForbidden:
		return errors.Join(ErrForbidden, apiErr)
	}
	return apiErr
}
