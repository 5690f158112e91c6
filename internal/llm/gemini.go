package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

var (
	// ErrModelUnavailable covers every failure to get a reply: no API key,
	// transport errors, server errors, empty candidates.
	ErrModelUnavailable = errors.New("language model unavailable")
	// ErrQuotaExceeded is returned when the API rejects the call for quota
	// or rate limits (HTTP 429).
	ErrQuotaExceeded = errors.New("language model quota exceeded")
)

// Generator sends a single prompt to a generative-language model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiClient creates a Gemini client. An empty baseURL uses the public
// endpoint. The model may be given with or without the "models/" prefix.
func NewGeminiClient(apiKey, model, baseURL string, timeout time.Duration) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   strings.TrimPrefix(model, "models/"),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name.
func (gc *GeminiClient) Model() string { return gc.model }

// Configured reports whether an API key is set.
func (gc *GeminiClient) Configured() bool { return gc.apiKey != "" }

// Generate sends prompt as a single user turn and returns the concatenated
// text of the first candidate.
func (gc *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if gc.apiKey == "" {
		return "", fmt.Errorf("%w: no API key configured", ErrModelUnavailable)
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", gc.baseURL, gc.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", gc.apiKey)

	resp, err := gc.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrModelUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: %s", ErrQuotaExceeded, truncate(body, 200))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: gemini API error (status %d): %s", ErrModelUnavailable, resp.StatusCode, truncate(body, 200))
	}

	var result geminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrModelUnavailable, err)
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrModelUnavailable)
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty candidate (finish reason %q)", ErrModelUnavailable, result.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
