// Package converter is the HTTP client for the external document-to-markdown
// conversion service.
package converter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/goccy/go-json"
)

// Metadata is what the service reports about a conversion.
type Metadata struct {
	ContentType      string  `json:"content_type"`
	ConversionMethod string  `json:"conversion_method"`
	ProcessingTime   float64 `json:"processing_time"`
	FileSize         int64   `json:"file_size"`
	OriginalURL      *string `json:"original_url"`
}

type Result struct {
	Markdown string   `json:"result"`
	Metadata Metadata `json:"metadata"`
}

// Options forwards an OpenAI key so the service can describe embedded images.
type Options struct {
	OpenAIKey   string
	OpenAIModel string
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: httpClient}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// ConvertFile uploads one file as multipart field "file".
func (c *Client) ConvertFile(ctx context.Context, name, contentType string, r io.Reader, opts Options) (*Result, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if opts.OpenAIKey != "" {
		_ = w.WriteField("openai_api_key", opts.OpenAIKey)
		_ = w.WriteField("openai_model", opts.OpenAIModel)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return c.post(ctx, w.FormDataContentType(), &body)
}

// ConvertURL asks the service to fetch and convert a remote page.
func (c *Client) ConvertURL(ctx context.Context, target string, opts Options) (*Result, error) {
	form := url.Values{}
	form.Set("url", target)
	if opts.OpenAIKey != "" {
		form.Set("openai_api_key", opts.OpenAIKey)
		form.Set("openai_model", opts.OpenAIModel)
	}
	return c.post(ctx, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (c *Client) post(ctx context.Context, contentType string, body io.Reader) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConversionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", common.ErrConversionFailed, resp.StatusCode, errorDetail(b))
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", common.ErrConversionFailed, err)
	}
	return &res, nil
}

func errorDetail(b []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &payload) == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(b))
}
