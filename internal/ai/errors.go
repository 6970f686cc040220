package ai

import (
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"marv/internal/utils"
)

var (
	// ErrUpstreamUnavailable marks failures to reach the provider at all.
	ErrUpstreamUnavailable = errors.New("llm provider unreachable")
	// ErrProviderNotConfigured is returned before any network call when credentials are missing.
	ErrProviderNotConfigured = errors.New("llm provider not configured")
	// ErrEmptyPrompt is returned when the prompt has no content.
	ErrEmptyPrompt = errors.New("prompt must not be empty")
)

// UpstreamError is any provider-side failure: bad credentials, rate limits, timeouts,
// malformed stream data, or an unreachable host (then it also matches ErrUpstreamUnavailable).
type UpstreamError struct {
	Provider string
	BaseURL  string
	Op       string // "open" or "stream"
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Unavailable reports whether the provider could not be reached.
func (e *UpstreamError) Unavailable() bool {
	return errors.Is(e.Err, ErrUpstreamUnavailable) || utils.IsConnectionFailure(e.Err)
}

// Is lets errors.Is(err, ErrUpstreamUnavailable) see through connection failures.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable && e.Unavailable()
}

func newUpstreamError(p Provider, op string, err error) *UpstreamError {
	return &UpstreamError{Provider: p.Name(), BaseURL: p.BaseURL(), Op: op, Err: err}
}

// Describe turns an error from this package into the message shown to end users.
// Unreachable providers get an actionable hint instead of the raw dial error.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) && upErr.Unavailable() {
		return fmt.Sprintf("LLM provider is unreachable at %s. Make sure it is running.", upErr.BaseURL)
	}
	if errors.Is(err, ErrUpstreamUnavailable) {
		return "LLM provider is unreachable. Make sure it is running."
	}
	if errors.Is(err, ErrProviderNotConfigured) {
		return err.Error()
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatus != "" {
		return "LLM provider returned " + reqErr.HTTPStatus
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message()
	}
	if upErr != nil {
		return upErr.Err.Error()
	}
	return err.Error()
}
