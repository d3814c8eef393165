// Package pipeline sequences one entitlement-gated analysis: authorize,
// check the ledger, assemble context, invoke the model, commit the result,
// and only then consume the entitlement. All terminal failures come back
// as a structured result, never as a panic or raw error across the
// presentation boundary.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/illegalcall/wodsense/internal/analysis"
	"github.com/illegalcall/wodsense/internal/athlete"
	"github.com/illegalcall/wodsense/internal/credits"
	"github.com/illegalcall/wodsense/internal/events"
	"github.com/illegalcall/wodsense/internal/models"
	"github.com/illegalcall/wodsense/internal/wods"
)

// Collaborator contracts, satisfied by the concrete implementations and by
// plain-struct doubles in tests.
type (
	Ledger interface {
		Check(ctx context.Context, accountID string) (models.EntitlementStatus, error)
		Consume(ctx context.Context, accountID string) (credits.Receipt, error)
	}

	Assembler interface {
		Assemble(ctx context.Context, accountID string) (athlete.Context, error)
	}

	Invoker interface {
		Analyze(ctx context.Context, input analysis.Input, actx athlete.Context) (models.AnalysisPayload, error)
	}

	Committer interface {
		Commit(ctx context.Context, accountID string, input analysis.Input, payload models.AnalysisPayload) (wods.Commit, error)
	}

	Publisher interface {
		PublishAnalysisCompleted(evt events.AnalysisCompleted)
	}
)

// ErrorKind classifies terminal failures for the presentation layer.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindNotAuthenticated ErrorKind = "not_authenticated"
	KindNoCredits        ErrorKind = "no_credits"
	KindMissingInput     ErrorKind = "missing_input"
	KindProvider         ErrorKind = "provider"
	KindMalformedOutput  ErrorKind = "malformed_output"
	KindInternal         ErrorKind = "internal"
)

// Result is the single exit shape of the pipeline.
type Result struct {
	Success   bool                    `json:"success"`
	Error     string                  `json:"error,omitempty"`
	ErrorKind ErrorKind               `json:"error_kind,omitempty"`
	WorkoutID string                  `json:"workout_id,omitempty"`
	Ephemeral bool                    `json:"ephemeral,omitempty"`
	Degraded  bool                    `json:"degraded,omitempty"`
	ImageURL  string                  `json:"image_url,omitempty"`
	Remaining int                     `json:"remaining_credits"`
	Analysis  *models.AnalysisPayload `json:"analysis,omitempty"`
}

// Pipeline wires the collaborators for CompleteAnalysis.
type Pipeline struct {
	ledger    Ledger
	assembler Assembler
	invoker   Invoker
	committer Committer
	publisher Publisher
}

func New(ledger Ledger, assembler Assembler, invoker Invoker, committer Committer, publisher Publisher) *Pipeline {
	return &Pipeline{
		ledger:    ledger,
		assembler: assembler,
		invoker:   invoker,
		committer: committer,
		publisher: publisher,
	}
}

// CompleteAnalysis runs the whole gated flow for one submission. The
// entitlement is consumed only after a usable commit outcome exists, so a
// failed model call or context fetch leaves the allowance untouched.
func (p *Pipeline) CompleteAnalysis(ctx context.Context, accountID string, input analysis.Input) Result {
	if accountID == "" {
		return fail(models.ErrNotAuthenticated)
	}

	status, err := p.ledger.Check(ctx, accountID)
	if err != nil {
		return fail(err)
	}
	if !status.CanProceed {
		return fail(models.ErrNoCredits)
	}

	actx, err := p.assembler.Assemble(ctx, accountID)
	if err != nil {
		return fail(err)
	}

	payload, err := p.invoker.Analyze(ctx, input, actx)
	if err != nil {
		return fail(err)
	}

	commit, err := p.committer.Commit(ctx, accountID, input, payload)
	if err != nil {
		return fail(err)
	}

	if p.publisher != nil {
		p.publisher.PublishAnalysisCompleted(events.AnalysisCompleted{
			AccountID:   accountID,
			WorkoutID:   commit.WorkoutID,
			Ephemeral:   commit.Ephemeral,
			Degraded:    commit.Degraded,
			CompletedAt: time.Now().UTC(),
		})
	}

	// The analysis exists and is renderable; commit the consumption last.
	receipt, err := p.ledger.Consume(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNoCredits) {
			// Lost a consume race after a successful analysis. The result is
			// already committed; surface it with zero remaining rather than
			// discarding the athlete's analysis.
			slog.Warn("Entitlement raced to zero after commit", "account_id", accountID)
			receipt = credits.Receipt{Remaining: 0}
		} else {
			return fail(err)
		}
	}

	return Result{
		Success:   true,
		WorkoutID: commit.WorkoutID,
		Ephemeral: commit.Ephemeral,
		Degraded:  commit.Degraded,
		ImageURL:  commit.ImageURL,
		Remaining: receipt.Remaining,
		Analysis:  &payload,
	}
}

func fail(err error) Result {
	return Result{
		Success:   false,
		Error:     userMessage(err),
		ErrorKind: classify(err),
	}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, models.ErrNotAuthenticated):
		return KindNotAuthenticated
	case errors.Is(err, models.ErrNoCredits):
		return KindNoCredits
	case errors.Is(err, models.ErrMissingInput):
		return KindMissingInput
	case errors.Is(err, models.ErrProvider):
		return KindProvider
	case errors.Is(err, models.ErrMalformedOutput):
		return KindMalformedOutput
	default:
		return KindInternal
	}
}

func userMessage(err error) string {
	switch classify(err) {
	case KindNotAuthenticated:
		return "not authenticated"
	case KindNoCredits:
		return "no analysis credits remaining"
	case KindMissingInput:
		return "provide a workout photo or workout text"
	case KindProvider, KindMalformedOutput:
		return "analysis failed, try again"
	default:
		slog.Error("Analysis pipeline internal error", "error", err)
		return "internal error"
	}
}
