package models

import "errors"

// Error taxonomy for the analysis pipeline. Handlers translate these into
// HTTP responses; the pipeline maps them into its single result shape.
var (
	// ErrNotAuthenticated means no account id could be derived for the caller.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoCredits means a free-tier account has no remaining analyses.
	ErrNoCredits = errors.New("no analysis credits remaining")

	// ErrMissingInput means the analysis request supplied no workout source
	// (or more than one).
	ErrMissingInput = errors.New("exactly one of image or text input is required")

	// ErrProvider is a transient model-provider failure: network, auth,
	// rate limit or timeout.
	ErrProvider = errors.New("model provider error")

	// ErrMalformedOutput means the model responded but the payload failed
	// structural validation.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrNotAuthorized is a cross-account access attempt.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrFeedbackUnavailable means post-workout feedback could not be
	// generated; the workout record is left untouched.
	ErrFeedbackUnavailable = errors.New("feedback unavailable")

	// ErrWodNotFound means no workout record matched the id for this account.
	ErrWodNotFound = errors.New("workout not found")
)
