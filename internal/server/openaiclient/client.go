// Package openaiclient wraps the OpenAI chat and models APIs used for image
// OCR and for checking admin-supplied keys.
package openaiclient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultOCRModel  = "gpt-4-vision-preview"
	DefaultTestModel = "gpt-4o"

	ocrSystemPrompt = "Extract the text from the image and return it as markdown. Render tables as markdown tables."
	ocrUserPrompt   = "Extract all text from this image."
	ocrMaxTokens    = 4000
)

// ErrNoChoices is returned when the API answers without a completion.
var ErrNoChoices = errors.New("openai: empty completion")

type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// newAPI is a seam for tests.
var newAPI = func(key, baseURL string) chatAPI {
	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// OCRResult is the markdown extracted from one image.
type OCRResult struct {
	Text  string       `json:"result"`
	Model string       `json:"model"`
	Usage openai.Usage `json:"usage"`
}

// Service builds a client per call because every request may carry its own key.
type Service struct {
	baseURL string
}

func New(baseURL string) *Service {
	return &Service{baseURL: baseURL}
}

// OCR sends the image as a data URI and returns the model's markdown.
func (s *Service) OCR(ctx context.Context, key, model, contentType string, image []byte) (*OCRResult, error) {
	if model == "" {
		model = DefaultOCRModel
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))

	resp, err := newAPI(key, s.baseURL).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: ocrMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ocrSystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: ocrUserPrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURI}},
			}},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	return &OCRResult{Text: resp.Choices[0].Message.Content, Model: model, Usage: resp.Usage}, nil
}

func (s *Service) Models(ctx context.Context, key string) ([]openai.Model, error) {
	list, err := newAPI(key, s.baseURL).ListModels(ctx)
	if err != nil {
		return nil, err
	}
	return list.Models, nil
}

// Test runs a tiny completion to prove that key and model work.
func (s *Service) Test(ctx context.Context, key, model string) (*openai.ChatCompletionResponse, error) {
	if model == "" {
		model = DefaultTestModel
	}
	resp, err := newAPI(key, s.baseURL).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: 50,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a helpful assistant."},
			{Role: openai.ChatMessageRoleUser, Content: "Hello, are you working correctly? Please respond with a short message."},
		},
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpstreamMessage extracts the API's own error message when there is one.
func UpstreamMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.Err != nil {
		return reqErr.Err.Error()
	}
	return err.Error()
}
