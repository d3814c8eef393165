package analysis

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

	"github.com/illegalcall/wodsense/internal/models"
)

// GeminiClient is the outbound contract to the generative model. The
// analysis invoker and the feedback generator share it.
type GeminiClient interface {
	GenerateContent(ctx context.Context, model string, parts []GeminiPart) (string, error)
}

// HTTPGeminiClient calls the Gemini REST API.
type HTTPGeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// GeminiRequest represents a request to the Gemini API.
type GeminiRequest struct {
	Contents []GeminiContent `json:"contents"`
}

type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart is either a text part or an inline image part.
type GeminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// InlineData carries base64-encoded binary content.
type InlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type GeminiResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
}

type GeminiCandidate struct {
	Content struct {
		Parts []GeminiPart `json:"parts"`
	} `json:"content"`
}

// NewGeminiClient creates a client. baseURL without trailing slash; the
// default production URL lives in config.
func NewGeminiClient(apiKey, baseURL string, timeout time.Duration) (*HTTPGeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	return &HTTPGeminiClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// GenerateContent sends one generation request and returns the first
// candidate's text. All transport, status and empty-response failures are
// reported as models.ErrProvider so callers never consume entitlement for
// a hung or failing provider.
func (c *HTTPGeminiClient) GenerateContent(ctx context.Context, model string, parts []GeminiPart) (string, error) {
	reqBody := GeminiRequest{
		Contents: []GeminiContent{{Parts: parts}},
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", models.ErrProvider, resp.StatusCode, string(body))
	}

	var geminiResp GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", models.ErrProvider, err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no response generated", models.ErrProvider)
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}
