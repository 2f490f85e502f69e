package config

import "errors"

// Configuration validation errors.
// These errors are returned by the Validate methods; callers use errors.Is
// for programmatic handling.
var (
	// ErrNoEquation is returned when solve gets neither an equation nor --list.
	ErrNoEquation = errors.New("no equation specified: provide an equation or use --list")

	// ErrInvalidVariable is returned when the variable is not a single ASCII letter.
	ErrInvalidVariable = errors.New("invalid variable: must be a single letter such as x")

	// ErrInvalidView is returned for an unknown view mode.
	ErrInvalidView = errors.New("invalid view: must be one of none, hint, steps, full")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrUnknownOCRBackend is returned for an OCR backend other than
	// tesseract or gemini.
	ErrUnknownOCRBackend = errors.New("unknown OCR backend: must be tesseract or gemini")

	// ErrInvalidOCRTimeout is returned when the OCR timeout is not positive.
	ErrInvalidOCRTimeout = errors.New("invalid OCR timeout: must be positive")

	// ErrInvalidMaxImageSize is returned when the image size limit is not positive.
	ErrInvalidMaxImageSize = errors.New("invalid max image size: must be positive")

	// ErrMissingGeminiKey is returned when the gemini backend has no API key.
	ErrMissingGeminiKey = errors.New("gemini backend requires GEMINI_API_KEY (environment or .env)")

	// ErrInvalidHistoryLimit is returned when the history limit is negative.
	ErrInvalidHistoryLimit = errors.New("invalid history limit: must be non-negative")
)
