package ai

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func refusedDial() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}

func TestUpstreamError_Unavailable(t *testing.T) {
	refused := &UpstreamError{Provider: "openai", BaseURL: "http://localhost:11434/v1", Op: "open", Err: refusedDial()}
	assert.True(t, refused.Unavailable())
	assert.ErrorIs(t, refused, ErrUpstreamUnavailable)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", refused), ErrUpstreamUnavailable)

	rejected := &UpstreamError{Provider: "openai", Op: "open", Err: &openai.APIError{Message: "quota exceeded", HTTPStatusCode: 429}}
	assert.False(t, rejected.Unavailable())
	assert.NotErrorIs(t, rejected, ErrUpstreamUnavailable)
	assert.Equal(t, "openai open: error, status code: 429, status: , message: quota exceeded", rejected.Error())
}

func TestDescribe(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
		{
			name:     "unreachable provider names the base URL",
			err:      &UpstreamError{Provider: "ollama", BaseURL: "http://localhost:11434", Op: "open", Err: refusedDial()},
			expected: "LLM provider is unreachable at http://localhost:11434. Make sure it is running.",
		},
		{
			name:     "bare unavailable sentinel",
			err:      ErrUpstreamUnavailable,
			expected: "LLM provider is unreachable. Make sure it is running.",
		},
		{
			name:     "not configured",
			err:      fmt.Errorf("%w: LLM_API_KEY is not set", ErrProviderNotConfigured),
			expected: "llm provider not configured: LLM_API_KEY is not set",
		},
		{
			name:     "api error message",
			err:      &UpstreamError{Op: "open", Err: fmt.Errorf("error, %w", &openai.APIError{Message: "model not found"})},
			expected: "model not found",
		},
		{
			name:     "request error status",
			err:      &UpstreamError{Op: "open", Err: &openai.RequestError{HTTPStatus: "502 Bad Gateway", HTTPStatusCode: 502, Err: errors.New("bad body")}},
			expected: "LLM provider returned 502 Bad Gateway",
		},
		{
			name:     "ollama status",
			err:      &UpstreamError{Op: "open", Err: &StatusError{StatusCode: 401, Status: "401 Unauthorized", Body: `{"error":"unauthorized"}`}},
			expected: "unauthorized",
		},
		{
			name:     "other upstream failure drops the provider prefix",
			err:      &UpstreamError{Provider: "openai", Op: "stream", Err: errors.New("stream reset")},
			expected: "stream reset",
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: "boom",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Describe(tc.err))
		})
	}
}
