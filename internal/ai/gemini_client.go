package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultGeminiEndpoint is the Generative Language models collection.
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	// DefaultGeminiModel is used when a request names no model.
	DefaultGeminiModel = "gemini-2.5-flash"
)

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	retry      retryPolicy
}

// NewGeminiClient builds a Gemini runtime. Zero values select the defaults
// (60s, 3 attempts, 500ms, 4s).
func NewGeminiClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *GeminiClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	return &GeminiClient{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiKey:     apiKey,
		endpoint:   DefaultGeminiEndpoint,
		retry:      newRetryPolicy(retryMax, baseDelay, maxDelay, 3, 500*time.Millisecond, 4*time.Second),
	}
}

// NewGeminiClientWithEndpoint overrides the models endpoint (used in tests).
func NewGeminiClientWithEndpoint(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, endpoint string) *GeminiClient {
	c := NewGeminiClient(apiKey, httpTimeout, retryMax, baseDelay, maxDelay)
	if endpoint != "" {
		c.endpoint = strings.TrimRight(endpoint, "/")
	}
	return c
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

// Generate maps the chat messages onto generateContent. System messages become
// the system instruction; assistant turns use the "model" role.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingCredential)
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	model := req.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	greq := geminiRequest{}
	for _, m := range req.Messages {
		part := geminiPart{Text: m.Content}
		switch m.Role {
		case "system":
			if greq.SystemInstruction == nil {
				greq.SystemInstruction = &geminiContent{}
			}
			greq.SystemInstruction.Parts = append(greq.SystemInstruction.Parts, part)
		case "assistant":
			greq.Contents = append(greq.Contents, geminiContent{Role: "model", Parts: []geminiPart{part}})
		default:
			greq.Contents = append(greq.Contents, geminiContent{Role: "user", Parts: []geminiPart{part}})
		}
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		greq.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens, Temperature: req.Temperature}
	}
	payload, err := json.Marshal(greq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent", c.endpoint, url.PathEscape(model))
	resp, err := send(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)
		return httpReq, nil
	}, classifyAPIError)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("decode response: invalid json")
	}
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg.String()}
	}

	var text strings.Builder
	gjson.GetBytes(body, "candidates.0.content.parts.#.text").ForEach(func(_, v gjson.Result) bool {
		text.WriteString(v.String())
		return true
	})
	out := &GenerateResponse{
		ID:        gjson.GetBytes(body, "responseId").String(),
		Choices:   []Choice{{Message: Message{Role: "assistant", Content: text.String()}}},
		RequestID: extractRequestID(resp),
		Usage: Usage{
			PromptTokens:     int(gjson.GetBytes(body, "usageMetadata.promptTokenCount").Int()),
			CompletionTokens: int(gjson.GetBytes(body, "usageMetadata.candidatesTokenCount").Int()),
			TotalTokens:      int(gjson.GetBytes(body, "usageMetadata.totalTokenCount").Int()),
		},
	}
	return out, nil
}
