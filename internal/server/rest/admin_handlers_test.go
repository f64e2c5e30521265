package rest

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/server/mailer"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/dmitrijs2005/docmark/internal/server/openaiclient"
	"github.com/dmitrijs2005/docmark/internal/server/services"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApiKeys struct {
	ApiKeyAPI
	created *models.ApiKey
}

func (f *fakeApiKeys) Create(ctx context.Context, k *models.ApiKey) (*models.ApiKey, error) {
	k.ID = "k1"
	f.created = k
	return k, nil
}

func (f *fakeApiKeys) Active(ctx context.Context, service string) (*models.ApiKey, error) {
	if service == "openai" {
		return &models.ApiKey{ID: "k1", Service: "openai", IsActive: true}, nil
	}
	return nil, common.ErrorNotFound
}

type fakeSmtp struct {
	SmtpAPI
	patch   *services.SmtpPatch
	tested  *models.SmtpConfig
	to      string
	testErr error
}

func (f *fakeSmtp) Update(ctx context.Context, id string, p *services.SmtpPatch) (*models.SmtpConfig, error) {
	f.patch = p
	return &models.SmtpConfig{ID: id, AuthPass: "hidden"}, nil
}

func (f *fakeSmtp) Test(ctx context.Context, cfg *models.SmtpConfig, to string) (*mailer.Info, error) {
	if f.testErr != nil {
		return nil, f.testErr
	}
	f.tested, f.to = cfg, to
	return &mailer.Info{MessageID: "<id@x>", Response: "250 OK"}, nil
}

type fakeOpenAI struct {
	OpenAIAPI
	model string
	err   error
}

func (f *fakeOpenAI) Test(ctx context.Context, key, model string) (*openai.ChatCompletionResponse, error) {
	f.model = model
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletionResponse{ID: "cmpl-1", Model: model}, nil
}

func (f *fakeOpenAI) OCR(ctx context.Context, key, model, contentType string, image []byte) (*openaiclient.OCRResult, error) {
	return &openaiclient.OCRResult{Text: string(image), Model: model}, nil
}

func TestApiKeys(t *testing.T) {
	keys := &fakeApiKeys{}
	s := newTestServer(t, Deps{ApiKeys: keys})

	body := map[string]any{"name": "main", "service": "OpenAI", "key": "sk-1"}
	w := do(t, s, http.MethodPost, "/api/api-keys", "alice-token", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, s, http.MethodPost, "/api/api-keys", "root-token", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, keys.created.IsActive, "keys are active unless told otherwise")

	w = do(t, s, http.MethodPost, "/api/api-keys", "root-token", map[string]any{"name": "x", "service": "aws", "key": "k"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/api-keys/active/openai", "alice-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, s, http.MethodGet, "/api/api-keys/active/google", "alice-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSmtp_UpdateAndTest(t *testing.T) {
	smtp := &fakeSmtp{}
	s := newTestServer(t, Deps{Smtp: smtp})

	w := do(t, s, http.MethodPut, "/api/smtp/c1", "root-token", map[string]any{
		"host": "mail.example.com",
		"auth": map[string]string{"user": "u", "pass": ""},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "mail.example.com", *smtp.patch.Host)
	assert.Equal(t, "u", *smtp.patch.AuthUser)
	assert.Nil(t, smtp.patch.Port)
	assert.NotContains(t, w.Body.String(), "hidden")

	cfg := map[string]any{
		"host": "mail.example.com", "port": 587, "secure": false,
		"auth":      map[string]string{"user": "u", "pass": "p"},
		"fromEmail": "noreply@example.com", "fromName": "Docmark",
		"testEmail": "ops@example.com",
	}
	w = do(t, s, http.MethodPost, "/api/smtp/test", "root-token", cfg)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"Test email sent","info":{"messageId":"<id@x>","response":"250 OK"}}`, w.Body.String())
	assert.Equal(t, "ops@example.com", smtp.to)
	assert.False(t, smtp.tested.Secure)
	assert.Equal(t, "p", smtp.tested.AuthPass)

	delete(cfg, "testEmail")
	w = do(t, s, http.MethodPost, "/api/smtp/test", "root-token", cfg)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	cfg["testEmail"] = "ops@example.com"
	smtp.testErr = errors.New("535 authentication failed")
	w = do(t, s, http.MethodPost, "/api/smtp/test", "root-token", cfg)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, message(t, w), "535 authentication failed")
}

func TestSettings_Put(t *testing.T) {
	settings := &fakeSettings{url: "http://old"}
	s := newTestServer(t, Deps{Settings: settings})

	w := do(t, s, http.MethodPut, "/api/settings", "root-token", map[string]string{"SERVER_URL": "https://docs.example"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "https://docs.example", settings.url)

	w = do(t, s, http.MethodPut, "/api/settings", "root-token", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "https://docs.example", settings.url)
}

func TestOpenAI(t *testing.T) {
	oa := &fakeOpenAI{}
	s := newTestServer(t, Deps{OpenAI: oa})

	w := do(t, s, http.MethodPost, "/api/openai/test", "alice-token", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/openai/test", "alice-token", map[string]string{"openai_api_key": "sk"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, openaiclient.DefaultTestModel, oa.model)

	oa.err = &openai.APIError{HTTPStatusCode: 401, Message: "Incorrect API key provided"}
	w = do(t, s, http.MethodPost, "/api/openai/test", "alice-token", map[string]string{"openai_api_key": "bad"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Incorrect API key provided", message(t, w))

	w = do(t, s, http.MethodPost, "/api/openai/test", "", map[string]string{"openai_api_key": "sk"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOpenAI_OCR(t *testing.T) {
	s := newTestServer(t, Deps{OpenAI: &fakeOpenAI{}})

	body, ct := multipartBody(t, []part{{field: "image", name: "scan.png", contentType: "image/png", body: "pixels"}},
		map[string]string{"openai_api_key": "sk"})
	req := newRequest(http.MethodPost, "/api/openai/ocr", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+"alice-token")

	w := serve(s, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"result":"pixels"`)
}
