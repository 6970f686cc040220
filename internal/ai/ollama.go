package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultOllamaBaseURL is the hosted Ollama API.
const DefaultOllamaBaseURL = "https://ollama.com"

// OllamaProvider streams from the native Ollama /api/chat endpoint, which answers with
// one JSON object per line.
type OllamaProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOllamaProvider builds a provider for baseURL, or DefaultOllamaBaseURL when empty.
// client may be nil. No client timeout is set: generations may run for minutes.
func NewOllamaProvider(apiKey, baseURL string, client *http.Client) *OllamaProvider {
	u := strings.TrimSuffix(baseURL, "/")
	if u == "" {
		u = DefaultOllamaBaseURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaProvider{baseURL: u, apiKey: apiKey, client: client}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) BaseURL() string { return p.baseURL }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error"`
}

// StatusError is a non-200 answer from the Ollama API.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama returned %s: %s", e.Status, e.Body)
}

// Message prefers the "error" field of a JSON body over the raw status line.
func (e *StatusError) Message() string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(e.Body), &body) == nil && body.Error != "" {
		return body.Error
	}
	if e.Body != "" {
		return fmt.Sprintf("LLM provider returned %s: %s", e.Status, e.Body)
	}
	return "LLM provider returned " + e.Status
}

func (p *OllamaProvider) OpenStream(ctx context.Context, req ChatRequest) (Stream, error) {
	if p.apiKey == "" && requiresAPIKey(p.baseURL) {
		return nil, fmt.Errorf("%w: OLLAMA_API_KEY is not set", ErrProviderNotConfigured)
	}

	payload, err := json.Marshal(ollamaChatRequest{
		Model:  req.Model,
		Stream: true,
		Messages: []ollamaMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, newUpstreamError(p, "open", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, newUpstreamError(p, "open", &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		})
	}

	return &ollamaStream{provider: p, body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

type ollamaStream struct {
	provider *OllamaProvider
	body     io.ReadCloser
	reader   *bufio.Reader
	done     bool
}

func (s *ollamaStream) Recv() (string, error) {
	for !s.done {
		line, err := s.reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var chunk ollamaChatChunk
			if jsonErr := json.Unmarshal(line, &chunk); jsonErr != nil {
				return "", newUpstreamError(s.provider, "stream", fmt.Errorf("decode chunk: %w", jsonErr))
			}
			if chunk.Error != "" {
				return "", newUpstreamError(s.provider, "stream", errors.New(chunk.Error))
			}
			if chunk.Done {
				s.done = true
			}
			if chunk.Message.Content != "" {
				return chunk.Message.Content, nil
			}
		}
		if errors.Is(err, io.EOF) {
			// Ollama always ends with done=true; a bare EOF means the connection dropped.
			if !s.done {
				return "", newUpstreamError(s.provider, "stream", io.ErrUnexpectedEOF)
			}
			break
		}
		if err != nil {
			return "", newUpstreamError(s.provider, "stream", err)
		}
	}
	return "", io.EOF
}

func (s *ollamaStream) Close() error {
	return s.body.Close()
}

var _ Provider = (*OllamaProvider)(nil)
