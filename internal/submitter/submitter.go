// Package submitter drives one copy generation at a time against the gateway and
// exposes the text as it streams in.
//
// A Submitter moves through Idle → Submitting → Streaming → Done, or ends in Failed
// when the request is rejected, the gateway cannot be reached, the stream breaks, or
// the gateway reports a mid-stream provider failure.
// Done and Failed behave like Idle for the next Submit.
package submitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/apex/log"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"marv/internal/types"
)

// GeneratePath is the gateway route that accepts prompts.
const GeneratePath = types.GeneratePath

// readBufferSize exceeds transform.Reader's internal buffer so each Read drains all
// decoded output and never splits a rune.
const readBufferSize = 8 << 10

const fallbackErrorMessage = "Failed to generate copy"

var (
	// ErrEmptyPrompt rejects empty or whitespace-only prompts before any request is sent.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrBusy rejects a Submit while another generation is in flight.
	ErrBusy = errors.New("a generation is already in progress")
)

// State is a step of the generation cycle.
type State int

const (
	Idle State = iota
	Submitting
	Streaming
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Streaming:
		return "streaming"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// InFlight reports whether a generation is running.
func (s State) InFlight() bool {
	return s == Submitting || s == Streaming
}

// Observer receives updates on the goroutine that called Submit.
type Observer interface {
	OnStateChange(state State)
	// OnOutput receives the whole accumulated buffer after each fragment.
	OnOutput(output string)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	StateChange func(State)
	Output      func(string)
}

func (o ObserverFuncs) OnStateChange(state State) {
	if o.StateChange != nil {
		o.StateChange(state)
	}
}

func (o ObserverFuncs) OnOutput(output string) {
	if o.Output != nil {
		o.Output(output)
	}
}

// Clipboard receives copied output.
type Clipboard interface {
	WriteAll(text string) error
}

// GenerationError is the outcome of a Failed cycle.
type GenerationError struct {
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Option configures a Submitter.
type Option func(*Submitter)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Submitter) { s.client = client }
}

func WithObserver(observer Observer) Option {
	return func(s *Submitter) { s.observer = observer }
}

func WithClipboard(clipboard Clipboard) Option {
	return func(s *Submitter) { s.clipboard = clipboard }
}

// Submitter owns the pending prompt, the display buffer and the cycle state.
type Submitter struct {
	endpoint  string
	client    *http.Client
	observer  Observer
	clipboard Clipboard

	mu     sync.Mutex
	prompt string
	state  State
	output strings.Builder
	errMsg string
}

// New returns an Idle submitter posting to baseURL + GeneratePath.
func New(baseURL string, opts ...Option) *Submitter {
	s := &Submitter{
		endpoint: strings.TrimRight(baseURL, "/") + GeneratePath,
		client:   http.DefaultClient,
		observer: ObserverFuncs{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPrompt replaces the pending prompt. It never touches the cycle state.
func (s *Submitter) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = prompt
}

// UseSample copies a sample's prompt into the pending prompt.
func (s *Submitter) UseSample(sample types.SamplePrompt) {
	s.SetPrompt(sample.Prompt)
}

func (s *Submitter) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Output returns the accumulated display buffer.
func (s *Submitter) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output.String()
}

// ErrorMessage returns the message of the last Failed cycle, or "".
func (s *Submitter) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// HasInlineError reports whether the buffer contains the gateway's in-band failure
// marker. The marker is plain text, so copy that contains "Error: " also matches;
// State() == Failed is the reliable signal when the gateway sent its trailer.
func (s *Submitter) HasInlineError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Contains(s.output.String(), types.InlineErrorPrefix)
}

// Copy writes the display buffer to the clipboard. It reports whether anything was
// copied; failures are logged and never change the cycle state.
func (s *Submitter) Copy() bool {
	output := s.Output()
	if output == "" || s.clipboard == nil {
		return false
	}
	if err := s.clipboard.WriteAll(output); err != nil {
		log.WithError(err).Warn("failed to copy output")
		return false
	}
	return true
}

// Submit runs one generation for the pending prompt and blocks until it is Done or
// Failed. It returns ErrEmptyPrompt or ErrBusy without sending anything, and a
// *GenerationError when the cycle ends in Failed.
func (s *Submitter) Submit(ctx context.Context) error {
	prompt, err := s.begin()
	if err != nil {
		return err
	}

	body, err := json.Marshal(types.GenerateRequest{Prompt: prompt})
	if err != nil {
		return s.fail(&GenerationError{Message: "Failed to encode prompt", Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return s.fail(&GenerationError{Message: "Failed to build request", Err: err})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return s.fail(&GenerationError{
			Message: fmt.Sprintf("Something went wrong. Make sure the copy service is running at %s.", s.endpoint),
			Err:     err,
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.fail(decodeErrorResponse(resp))
	}

	s.setState(Streaming)
	if err := s.consume(resp.Body); err != nil {
		return s.fail(&GenerationError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Stream interrupted: %v", err),
			Err:        err,
		})
	}
	if msg := resp.Trailer.Get(types.GenerationErrorTrailer); msg != "" {
		return s.fail(&GenerationError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			Err:        errors.New("generation failed mid-stream"),
		})
	}
	s.setState(Done)
	return nil
}

// begin validates and claims the submitter for a new cycle.
func (s *Submitter) begin() (string, error) {
	s.mu.Lock()
	if strings.TrimSpace(s.prompt) == "" {
		s.mu.Unlock()
		return "", ErrEmptyPrompt
	}
	if s.state.InFlight() {
		s.mu.Unlock()
		return "", ErrBusy
	}
	prompt := s.prompt
	s.state = Submitting
	s.output.Reset()
	s.errMsg = ""
	s.mu.Unlock()

	s.observer.OnOutput("")
	s.observer.OnStateChange(Submitting)
	return prompt, nil
}

// consume appends decoded fragments to the buffer in arrival order. Bytes of a
// character split across reads are held back until the rest arrives; invalid
// sequences become U+FFFD.
func (s *Submitter) consume(body io.Reader) error {
	reader := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, readBufferSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.output.Write(buf[:n])
			output := s.output.String()
			s.mu.Unlock()
			s.observer.OnOutput(output)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *Submitter) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.observer.OnStateChange(state)
}

// fail moves to Failed. Text accumulated so far stays in the buffer.
func (s *Submitter) fail(genErr *GenerationError) error {
	s.mu.Lock()
	s.state = Failed
	s.errMsg = genErr.Message
	s.mu.Unlock()
	s.observer.OnStateChange(Failed)
	return genErr
}

func decodeErrorResponse(resp *http.Response) *GenerationError {
	genErr := &GenerationError{StatusCode: resp.StatusCode, Message: fallbackErrorMessage}

	var payload types.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil {
		genErr.Err = fmt.Errorf("decode error response (status %d): %w", resp.StatusCode, err)
		return genErr
	}
	if payload.Error != "" {
		genErr.Message = payload.Error
	}
	genErr.Err = fmt.Errorf("gateway returned status %d", resp.StatusCode)
	return genErr
}
