// Package analysis builds the model instruction from the assembled athlete
// context and the raw workout input, invokes the generative model and
// enforces the structured output contract. It never persists anything.
package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/illegalcall/wodsense/internal/athlete"
	"github.com/illegalcall/wodsense/internal/models"
)

// Input is the raw workout submission. Exactly one source must be set.
type Input struct {
	ImageBytes []byte
	ImageMIME  string
	ImageURL   string
	RawText    string
}

// Validate enforces the exactly-one-source rule.
func (in Input) Validate() error {
	sources := 0
	if len(in.ImageBytes) > 0 {
		sources++
	}
	if in.ImageURL != "" {
		sources++
	}
	if strings.TrimSpace(in.RawText) != "" {
		sources++
	}
	if sources != 1 {
		return models.ErrMissingInput
	}
	return nil
}

// Invoker drives one analysis round trip against the model.
type Invoker struct {
	client  GeminiClient
	model   string
	timeout time.Duration
}

func NewInvoker(client GeminiClient, model string, timeout time.Duration) *Invoker {
	return &Invoker{client: client, model: model, timeout: timeout}
}

// Analyze runs the model against the input and returns the validated
// payload. Malformed output is retried exactly once with a tightened
// instruction; provider failures are never retried here.
func (inv *Invoker) Analyze(ctx context.Context, input Input, actx athlete.Context) (models.AnalysisPayload, error) {
	if err := input.Validate(); err != nil {
		return models.AnalysisPayload{}, err
	}

	systemPrompt := BuildSystemPrompt(actx)

	payload, err := inv.invokeOnce(ctx, systemPrompt, input)
	if err == nil {
		return payload, nil
	}
	if !errors.Is(err, models.ErrMalformedOutput) {
		return models.AnalysisPayload{}, err
	}

	slog.Warn("Model returned malformed output, retrying once", "error", err)
	payload, retryErr := inv.invokeOnce(ctx, systemPrompt+strictReminder, input)
	if retryErr != nil {
		return models.AnalysisPayload{}, retryErr
	}
	return payload, nil
}

func (inv *Invoker) invokeOnce(ctx context.Context, systemPrompt string, input Input) (models.AnalysisPayload, error) {
	// Bounded wall-clock budget so a hung provider cannot hold the
	// check-to-consume window open indefinitely.
	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	parts := []GeminiPart{{Text: systemPrompt}}
	switch {
	case len(input.ImageBytes) > 0:
		mime := input.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts,
			GeminiPart{Text: "Analyze this workout whiteboard photo and return the personalized JSON analysis:"},
			GeminiPart{InlineData: &InlineData{
				MIMEType: mime,
				Data:     base64.StdEncoding.EncodeToString(input.ImageBytes),
			}},
		)
	case input.ImageURL != "":
		parts = append(parts, GeminiPart{Text: fmt.Sprintf(
			"Analyze the workout whiteboard photo at %s and return the personalized JSON analysis:", input.ImageURL)})
	default:
		parts = append(parts, GeminiPart{Text: fmt.Sprintf(
			"Analyze this workout and return the personalized JSON analysis:\n\n%s", input.RawText)})
	}

	text, err := inv.client.GenerateContent(ctx, inv.model, parts)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, models.ErrProvider) {
			return models.AnalysisPayload{}, fmt.Errorf("%w: %v", models.ErrProvider, err)
		}
		return models.AnalysisPayload{}, err
	}

	return ParsePayload(text)
}

// requiredFields must all be present in the model's JSON reply.
var requiredFields = []string{"workout_summary", "intent", "strategy", "suggested_weights"}

// ParsePayload validates the raw model reply against the payload contract
// and returns the normalized structure. Any structural problem is
// models.ErrMalformedOutput, distinct from transport failures.
func ParsePayload(raw string) (models.AnalysisPayload, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	if !gjson.Valid(clean) {
		return models.AnalysisPayload{}, fmt.Errorf("%w: reply is not valid JSON", models.ErrMalformedOutput)
	}

	parsed := gjson.Parse(clean)
	if !parsed.IsObject() {
		return models.AnalysisPayload{}, fmt.Errorf("%w: reply is not a JSON object", models.ErrMalformedOutput)
	}
	for _, field := range requiredFields {
		if !parsed.Get(field).Exists() {
			return models.AnalysisPayload{}, fmt.Errorf("%w: missing required field %q", models.ErrMalformedOutput, field)
		}
	}

	var payload models.AnalysisPayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return models.AnalysisPayload{}, fmt.Errorf("%w: %v", models.ErrMalformedOutput, err)
	}

	payload.Normalize()
	return payload, nil
}
