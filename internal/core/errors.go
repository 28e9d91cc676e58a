package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrModelUnavailable is returned when the model service cannot be reached or rejects our credentials
	ErrModelUnavailable = errors.New("model service unavailable")
	// ErrModelTimeout is returned when the model service did not answer in time
	ErrModelTimeout = errors.New("model service timed out")
	// ErrModelRefused is returned when the model service rejected the request
	ErrModelRefused = errors.New("model service refused the request")
	// ErrMalformedResponse is returned when the model response is not a JSON object
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrIncompleteResponse is returned when required fields are missing from the model response
	ErrIncompleteResponse = errors.New("incomplete model response")
	// ErrInvalidListing is returned for listings that cannot be analysed
	ErrInvalidListing = errors.New("invalid listing")
	// ErrAnalysisInProgress is returned when an analysis is already running for the session
	ErrAnalysisInProgress = errors.New("an analysis is already in progress")
	// ErrNotConfigured is matched by every ConfigError
	ErrNotConfigured = errors.New("not configured")
	// ErrAnalysisCanceled is returned when the caller abandoned the analysis
	ErrAnalysisCanceled = errors.New("analysis canceled")
)

// ModelError describes a failed model invocation
type ModelError struct {
	Kind     error
	Provider string
	Err      error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// NewModelError wraps err as a model failure of the given kind
func NewModelError(kind error, provider string, err error) *ModelError {
	return &ModelError{Kind: kind, Provider: provider, Err: err}
}

// ClassifyModelError maps transport level failures shared by all providers.
// Cancellation becomes ErrAnalysisCanceled, deadline and network timeouts
// become ErrModelTimeout, anything else not already classified becomes fallback.
func ClassifyModelError(provider string, err error, fallback error) error {
	if err == nil {
		return nil
	}
	var me *ModelError
	if errors.As(err, &me) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return Canceled(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewModelError(ErrModelTimeout, provider, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewModelError(ErrModelTimeout, provider, err)
	}
	return NewModelError(fallback, provider, err)
}

// Canceled marks err as an abandoned analysis
func Canceled(err error) error {
	if errors.Is(err, ErrAnalysisCanceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAnalysisCanceled, err)
}

// KindForStatus maps an upstream HTTP status code to a model failure kind.
// Authentication, quota and server errors count as unavailability; request
// rejections count as refusals.
func KindForStatus(code int) error {
	switch {
	case code == 408 || code == 504:
		return ErrModelTimeout
	case code == 400 || code == 409 || code == 413 || code == 422:
		return ErrModelRefused
	default:
		return ErrModelUnavailable
	}
}

// MalformedResponseError carries the raw model text for diagnostics
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMalformedResponse, e.Err)
}

func (e *MalformedResponseError) Unwrap() []error {
	return []error{ErrMalformedResponse, e.Err}
}

// IncompleteResponseError lists the required fields the model left out
type IncompleteResponseError struct {
	Missing []string
}

func (e *IncompleteResponseError) Error() string {
	return fmt.Sprintf("%v: missing %s", ErrIncompleteResponse, strings.Join(e.Missing, ", "))
}

func (e *IncompleteResponseError) Unwrap() error {
	return ErrIncompleteResponse
}

// ConfigError names a missing or invalid input detected at session start
type ConfigError struct {
	Input string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Input, e.Err)
}

func (e *ConfigError) Unwrap() []error {
	return []error{ErrNotConfigured, e.Err}
}

// ListingError describes an invalid listing field
type ListingError struct {
	Field  string
	Reason string
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrInvalidListing, e.Field, e.Reason)
}

func (e *ListingError) Unwrap() error {
	return ErrInvalidListing
}

// UserMessage renders an error as a message suitable for the analyst
func UserMessage(err error) string {
	var cfgErr *ConfigError
	var malformed *MalformedResponseError
	var incomplete *IncompleteResponseError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return fmt.Sprintf("Analysis is disabled until the configuration is fixed: %s (%v)", cfgErr.Input, cfgErr.Err)
	case errors.Is(err, ErrInvalidListing):
		return err.Error()
	case errors.Is(err, ErrAnalysisInProgress):
		return "Another analysis is still running. Please wait for it to finish."
	case errors.Is(err, ErrAnalysisCanceled):
		return "The analysis was canceled before the AI service answered."
	case errors.Is(err, ErrModelTimeout):
		return "The AI service did not respond in time. Please try again."
	case errors.Is(err, ErrModelRefused):
		return "The AI service refused to analyse this listing."
	case errors.Is(err, ErrModelUnavailable):
		return "The AI service is unavailable. Check network access and credentials."
	case errors.As(err, &incomplete):
		return fmt.Sprintf("The AI response was missing required fields: %s.", strings.Join(incomplete.Missing, ", "))
	case errors.As(err, &malformed):
		return "The AI response could not be read as JSON."
	default:
		return fmt.Sprintf("Analysis failed: %v", err)
	}
}

// maxExcerptRunes bounds the raw model text shown to the analyst
const maxExcerptRunes = 300

// Diagnostic returns a one-line excerpt of the raw model text behind a
// malformed response, or "" for any other error.
func Diagnostic(err error) string {
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		return ""
	}
	text := strings.Join(strings.Fields(malformed.Raw), " ")
	if text == "" {
		return "(empty response)"
	}
	runes := []rune(text)
	if len(runes) > maxExcerptRunes {
		return string(runes[:maxExcerptRunes]) + "..."
	}
	return text
}
