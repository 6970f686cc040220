package ai

import (
	"context"
	"strings"

	"github.com/apex/log"

	"marv/internal/ai/prompts"
)

// Generator turns a user prompt into a streamed piece of marketing copy. It holds no
// per-request state and is safe for concurrent use.
type Generator struct {
	provider     Provider
	model        string
	systemPrompt string
}

func NewGenerator(provider Provider, model string) *Generator {
	return &Generator{
		provider:     provider,
		model:        model,
		systemPrompt: prompts.CopywriterSystemPrompt,
	}
}

// StreamCopy opens a provider stream for prompt. Errors returned here happen before
// any generated text exists; errors from the returned Stream happen mid-generation.
func (g *Generator) StreamCopy(ctx context.Context, prompt string) (Stream, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	log.WithFields(log.Fields{
		"provider":      g.provider.Name(),
		"model":         g.model,
		"prompt_length": len(prompt),
	}).Debug("opening copy stream")

	return g.provider.OpenStream(ctx, ChatRequest{
		Model:  g.model,
		System: g.systemPrompt,
		Prompt: prompt,
	})
}

func (g *Generator) ProviderName() string { return g.provider.Name() }

func (g *Generator) Model() string { return g.model }
