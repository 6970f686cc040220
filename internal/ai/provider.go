package ai

import (
	"context"
	"net"
	"net/url"
)

// ChatRequest is one system+user exchange sent to a provider in streaming mode.
type ChatRequest struct {
	Model  string
	System string
	Prompt string
}

// Stream yields generated text fragments in provider order. Recv returns io.EOF once the
// provider closes the stream normally. Close releases the upstream connection and is safe
// to call more than once.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Provider opens streaming chat completions against an LLM backend.
type Provider interface {
	Name() string
	BaseURL() string
	OpenStream(ctx context.Context, req ChatRequest) (Stream, error)
}

// requiresAPIKey is false for providers running on the local machine, which
// accept unauthenticated requests.
func requiresAPIKey(baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil {
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return false
	}
	return true
}
