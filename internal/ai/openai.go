package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIBaseURL is Ollama's hosted OpenAI-compatible endpoint.
const DefaultOpenAIBaseURL = "https://ollama.com/v1"

// OpenAIProvider streams from any OpenAI-compatible chat completions API.
type OpenAIProvider struct {
	client  *openai.Client
	apiKey  string
	baseURL string
}

// NewOpenAIProvider builds a provider for baseURL, or DefaultOpenAIBaseURL when empty.
// httpClient may be nil.
func NewOpenAIProvider(apiKey, baseURL string, httpClient openai.HTTPDoer) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	if httpClient != nil {
		config.HTTPClient = httpClient
	}
	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(config),
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) BaseURL() string { return p.baseURL }

func (p *OpenAIProvider) OpenStream(ctx context.Context, req ChatRequest) (Stream, error) {
	if p.apiKey == "" && requiresAPIKey(p.baseURL) {
		return nil, fmt.Errorf("%w: LLM_API_KEY is not set", ErrProviderNotConfigured)
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Stream: true,
	})
	if err != nil {
		return nil, newUpstreamError(p, "open", err)
	}
	return &openAIStream{provider: p, stream: stream}, nil
}

type openAIStream struct {
	provider *OpenAIProvider
	stream   *openai.ChatCompletionStream
	finished bool // a choice carried a finish_reason
	closed   bool
}

// Recv skips role-only and usage-only events so every returned fragment carries text.
// go-openai reports a body that ends without [DONE] as a plain io.EOF, so a stream only
// ends cleanly once a finish_reason has been seen.
func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			if !s.finished {
				return "", newUpstreamError(s.provider, "stream", io.ErrUnexpectedEOF)
			}
			return "", io.EOF
		}
		if err != nil {
			return "", newUpstreamError(s.provider, "stream", err)
		}
		for _, choice := range resp.Choices {
			if choice.FinishReason != "" {
				s.finished = true
			}
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content != "" {
				return choice.Delta.Content, nil
			}
		}
	}
}

func (s *openAIStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stream.Close()
}

var _ Provider = (*OpenAIProvider)(nil)
