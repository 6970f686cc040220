package types

// GeneratePath is the route that accepts prompts.
const GeneratePath = "/api/generate"

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// ErrorResponse is the JSON body of every non-streamed failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SamplePrompt is one entry of the sample prompt catalogue.
type SamplePrompt struct {
	ID       int    `json:"id" yaml:"id"`
	Category string `json:"category" yaml:"category"`
	Prompt   string `json:"prompt" yaml:"prompt"`
	Preview  string `json:"preview" yaml:"preview"`
}

// InlineErrorPrefix starts the in-band marker written when the provider fails after
// the response has been committed.
const InlineErrorPrefix = "Error: "

// GenerationErrorTrailer is the HTTP trailer that carries the same message as the
// inline marker. Clients that read trailers can tell a failed stream from copy that
// merely contains "Error: ".
const GenerationErrorTrailer = "X-Generation-Error"
