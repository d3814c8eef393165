package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/wodsense/internal/models"
)

func geminiReply(text string) string {
	resp := GeminiResponse{
		Candidates: []GeminiCandidate{{}},
	}
	resp.Candidates[0].Content.Parts = []GeminiPart{{Text: text}}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func TestGenerateContentSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v1beta/models/test-model:generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req GeminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Contents)

		w.Write([]byte(geminiReply("hello athlete")))
	}))
	defer ts.Close()

	client, err := NewGeminiClient("test-key", ts.URL, 5*time.Second)
	require.NoError(t, err)

	text, err := client.GenerateContent(context.Background(), "test-model", []GeminiPart{{Text: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hello athlete", text)
}

func TestGenerateContentStatusErrorIsProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limit"}`))
	}))
	defer ts.Close()

	client, err := NewGeminiClient("test-key", ts.URL, 5*time.Second)
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), "test-model", []GeminiPart{{Text: "hi"}})
	assert.ErrorIs(t, err, models.ErrProvider)
}

func TestGenerateContentEmptyCandidatesIsProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer ts.Close()

	client, err := NewGeminiClient("test-key", ts.URL, 5*time.Second)
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), "test-model", []GeminiPart{{Text: "hi"}})
	assert.ErrorIs(t, err, models.ErrProvider)
}

func TestGenerateContentTimeoutIsProviderError(t *testing.T) {
	blocked := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer ts.Close()
	defer close(blocked)

	client, err := NewGeminiClient("test-key", ts.URL, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = client.GenerateContent(ctx, "test-model", []GeminiPart{{Text: "hi"}})
	assert.ErrorIs(t, err, models.ErrProvider)
}

func TestNewGeminiClientRequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient("", "https://example.com", time.Second)
	assert.Error(t, err)
}
