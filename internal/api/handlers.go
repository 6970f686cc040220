package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"marv/internal/ai"
	"marv/internal/metrics"
	"marv/internal/middleware"
	"marv/internal/types"
	"marv/internal/utils"
)

const (
	msgInvalidPrompt    = "Please provide a valid prompt"
	msgMethodNotAllowed = "Method not allowed. Use POST."
	msgUnexpected       = "An unexpected error occurred"
)

// CopyGenerator opens copy streams. *ai.Generator implements it.
type CopyGenerator interface {
	StreamCopy(ctx context.Context, prompt string) (ai.Stream, error)
	ProviderName() string
	Model() string
}

// APIHandler holds dependencies for API endpoints.
type APIHandler struct {
	generator CopyGenerator
	samples   []types.SamplePrompt
}

// NewAPIHandler initializes a new API handler with its dependencies.
func NewAPIHandler(generator CopyGenerator, samples []types.SamplePrompt) *APIHandler {
	return &APIHandler{
		generator: generator,
		samples:   samples,
	}
}

// POST /api/generate
//
// The provider stream is opened, and its first fragment awaited, before the 200 is
// committed, so every failure up to that point is reported as a JSON error. After
// that the status is fixed and failures are appended to the body as "Error: ...".
func (h *APIHandler) GenerateCopy(c *gin.Context) {
	start := time.Now()
	entry := log.WithFields(log.Fields{
		"request_id": middleware.GetRequestID(c),
		"provider":   h.generator.ProviderName(),
		"model":      h.generator.Model(),
	})

	var req types.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		if err != nil {
			entry.WithError(err).Warn("invalid generate request body")
		} else {
			entry.Warn("empty prompt")
		}
		metrics.GenerationsTotal.WithLabelValues(metrics.ResultValidationError).Inc()
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: msgInvalidPrompt})
		return
	}

	ctx := c.Request.Context()
	stream, err := h.generator.StreamCopy(ctx, req.Prompt)
	if err != nil {
		h.writeOpenError(c, entry, err)
		return
	}
	defer stream.Close()

	metrics.GenerationsInFlight.Inc()
	defer metrics.GenerationsInFlight.Dec()

	fragment, err := stream.Recv()
	if err != nil && !errors.Is(err, io.EOF) {
		h.writeOpenError(c, entry, err)
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Trailer", types.GenerationErrorTrailer)
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()

	chunks, written := 0, 0
	for err == nil {
		n, writeErr := c.Writer.WriteString(fragment)
		if writeErr != nil {
			h.finish(entry, start, metrics.ResultClientDisconnect, chunks, written)
			if !utils.IsClientGone(writeErr) {
				entry.WithError(writeErr).Warn("write to client failed")
			}
			return
		}
		c.Writer.Flush()
		if chunks == 0 {
			metrics.FirstChunkSeconds.Observe(time.Since(start).Seconds())
		}
		chunks++
		written += n
		metrics.ChunksRelayedTotal.Inc()

		fragment, err = stream.Recv()
	}

	switch {
	case errors.Is(err, io.EOF):
		c.Writer.Flush()
		h.finish(entry, start, metrics.ResultSuccess, chunks, written)
	case ctx.Err() != nil:
		// Nobody is left to read an inline marker.
		h.finish(entry, start, metrics.ResultClientDisconnect, chunks, written)
	default:
		entry.WithError(err).Error("provider failed mid-stream")
		msg := ai.Describe(err)
		_, _ = c.Writer.WriteString(types.InlineErrorPrefix + msg)
		c.Writer.Header().Set(types.GenerationErrorTrailer, strings.Join(strings.Fields(msg), " "))
		c.Writer.Flush()
		h.finish(entry, start, metrics.ResultMidStreamError, chunks, written)
	}
}

// writeOpenError reports a failure that happened before any generated text was sent.
func (h *APIHandler) writeOpenError(c *gin.Context, entry *log.Entry, err error) {
	switch {
	case errors.Is(err, ai.ErrEmptyPrompt):
		metrics.GenerationsTotal.WithLabelValues(metrics.ResultValidationError).Inc()
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: msgInvalidPrompt})
		return
	case errors.Is(err, ai.ErrUpstreamUnavailable):
		entry.WithError(err).Error("LLM provider unreachable")
		metrics.GenerationsTotal.WithLabelValues(metrics.ResultUnavailable).Inc()
	case errors.Is(err, context.Canceled):
		entry.Info("client went away before the stream opened")
		metrics.GenerationsTotal.WithLabelValues(metrics.ResultClientDisconnect).Inc()
	default:
		entry.WithError(err).Error("failed to open copy stream")
		metrics.GenerationsTotal.WithLabelValues(metrics.ResultUpstreamError).Inc()
	}

	msg := ai.Describe(err)
	if msg == "" {
		msg = msgUnexpected
	}
	c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: msg})
}

func (h *APIHandler) finish(entry *log.Entry, start time.Time, result string, chunks, bytes int) {
	elapsed := time.Since(start)
	metrics.GenerationsTotal.WithLabelValues(result).Inc()
	metrics.StreamDurationSeconds.WithLabelValues(result).Observe(elapsed.Seconds())
	entry.WithFields(log.Fields{
		"result":   result,
		"chunks":   chunks,
		"bytes":    bytes,
		"duration": elapsed.String(),
	}).Info("copy stream finished")
}

// MethodNotAllowed answers every non-POST verb on /api/generate.
func (h *APIHandler) MethodNotAllowed(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	c.JSON(http.StatusMethodNotAllowed, types.ErrorResponse{Error: msgMethodNotAllowed})
}

// NoMethod is the router's 405 handler. gin has already set Allow for other paths.
func (h *APIHandler) NoMethod(c *gin.Context) {
	if strings.TrimSuffix(c.Request.URL.Path, "/") == types.GeneratePath {
		h.MethodNotAllowed(c)
		return
	}
	c.JSON(http.StatusMethodNotAllowed, types.ErrorResponse{Error: "Method not allowed"})
}

// GET /api/samples
func (h *APIHandler) ListSamples(c *gin.Context) {
	samples := h.samples
	if samples == nil {
		samples = []types.SamplePrompt{}
	}
	c.JSON(http.StatusOK, samples)
}

// GET /health
func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": h.generator.ProviderName(),
		"model":    h.generator.Model(),
	})
}
