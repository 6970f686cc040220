package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marv/internal/ai"
	handlers "marv/internal/api"
	"marv/internal/metrics"
	"marv/internal/middleware"
	"marv/internal/types"
)

type sliceStream struct {
	fragments []string
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.fragments) == 0 {
		return "", io.EOF
	}
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	return f, nil
}

func (s *sliceStream) Close() error { return nil }

type stubGenerator struct{}

func (stubGenerator) StreamCopy(_ context.Context, _ string) (ai.Stream, error) {
	return &sliceStream{fragments: []string{"Fresh", " beans."}}, nil
}

func (stubGenerator) ProviderName() string { return "stub" }
func (stubGenerator) Model() string        { return "stub-model" }

func newTestRouter(generateMiddleware ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	metrics.Register()

	router := gin.New()
	router.Use(middleware.RequestID())
	h := handlers.NewAPIHandler(stubGenerator{}, []types.SamplePrompt{
		{ID: 1, Category: "Ad Copy", Prompt: "Sell coffee", Preview: "Fresh"},
	})
	RegisterRoutes(router, h, generateMiddleware...)
	return router
}

func TestGenerateRoute_OnlyAcceptsPost(t *testing.T) {
	router := newTestRouter()

	methods := []string{
		http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete,
		http.MethodOptions, http.MethodTrace,
		"PROPFIND", "PURGE", "BREW",
	}
	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(method, "/api/generate", nil))

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
			assert.JSONEq(t, `{"error":"Method not allowed. Use POST."}`, w.Body.String())
		})
	}
}

func TestOtherRoutes_MethodNotAllowed(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.MethodGet, w.Header().Get("Allow"))
	assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateRoute_Streams(t *testing.T) {
	router := newTestRouter()
	before := testutil.ToFloat64(metrics.GenerationsTotal.WithLabelValues(metrics.ResultSuccess))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewBufferString(`{"prompt":"coffee"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Fresh beans.", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.GenerationsTotal.WithLabelValues(metrics.ResultSuccess)))
}

func TestGenerateRoute_RateLimited(t *testing.T) {
	router := newTestRouter(middleware.RateLimitMiddleware(1, time.Minute))

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewBufferString(`{"prompt":"coffee"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)
	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// The limiter only guards generation.
	health := httptest.NewRecorder()
	router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestSamplesRoute(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/samples", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got []types.SamplePrompt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Sell coffee", got[0].Prompt)
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "marv_gateway_generations_in_flight"))
}
