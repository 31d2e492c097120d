package domain

import "errors"

var (
	// ErrGenerationFailure covers upstream timeouts, empty output and schema mismatches.
	ErrGenerationFailure = errors.New("generation failure")

	// ErrAgentOutputInvalid means the output parsed but a required semantic field is empty.
	ErrAgentOutputInvalid = errors.New("agent output invalid")

	// ErrMalformedDraft means persisted draft text cannot be decoded.
	ErrMalformedDraft = errors.New("malformed draft")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
