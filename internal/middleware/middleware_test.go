package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/infrastructure"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/shared/testutil"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
})

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generates id", ""},
		{"keeps client id", "client-supplied-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen, seenTrace string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = chimw.GetReqID(r.Context())
				seenTrace = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
			assert.Equal(t, seen, seenTrace)
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, seen)
			}
		})
	}
}

func TestStructuredLogger(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := RequestID(StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cohorts/x", nil))

	testutil.AssertLogContains(t, logs, slog.LevelWarn, "request completed")
	testutil.AssertLogAttr(t, logs, "path", "/api/v1/cohorts/x")
	testutil.AssertLogAttr(t, logs, "status", int64(http.StatusNotFound))
}

func TestRecoverer(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := RequestID(Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, w.Header().Get(RequestIDHeader), body["trace_id"])
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}

func TestRateLimiter(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewRateLimiter(1, 2, logger).Handler(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "rate limit exceeded")
}

func TestTimeout(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := Timeout(10*time.Millisecond, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		assert.ErrorIs(t, r.Context().Err(), context.DeadlineExceeded)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "request timeout")
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}})(okHandler)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, RequestIDHeader, w.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestAuditLog(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := AuditLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "audit log complete")
	testutil.AssertLogAttr(t, logs, "status", int64(http.StatusAccepted))
}

type runRequest struct {
	AsOf      string    `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
	CohortKey string    `json:"cohort_key" validate:"omitempty,oneof=district none"`
	Weights   []float64 `json:"weights" validate:"omitempty,len=5,unit_sum,dive,gte=0,lte=1"`
}

func TestValidateStruct(t *testing.T) {
	m := NewValidationMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)), apierrors.NewErrorHandler(nil, false))

	tests := []struct {
		name       string
		req        runRequest
		wantFields []string
	}{
		{"empty is valid", runRequest{}, nil},
		{"full request", runRequest{AsOf: "2024-06-30", CohortKey: "none", Weights: []float64{0.3, 0.25, 0.2, 0.15, 0.1}}, nil},
		{"bad date", runRequest{AsOf: "30.06.2024"}, []string{"as_of"}},
		{"bad cohort key", runRequest{CohortKey: "city"}, []string{"cohort_key"}},
		{"weights off by a lot", runRequest{Weights: []float64{0.5, 0.5, 0.5, 0, 0}}, []string{"weights"}},
		{"wrong weight count", runRequest{Weights: []float64{1}}, []string{"weights"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ValidateStruct(tt.req)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			details, ok := apiErr.Details.([]apierrors.ValidationError)
			require.True(t, ok)
			var fields []string
			for _, d := range details {
				fields = append(fields, d.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	m := NewValidationMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)), apierrors.NewErrorHandler(nil, false))
	var gotBody string
	h := m.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusAccepted)
	}))

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid json", `{"as_of":"2024-06-30"}`, http.StatusAccepted},
		{"empty body", ``, http.StatusAccepted},
		{"broken json", `{"as_of":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBody = ""
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusAccepted {
				assert.Equal(t, tt.body, gotBody, "body is restored for the handler")
			}
		})
	}
}

func TestQueryParamValidator(t *testing.T) {
	v := NewQueryParamValidator(slog.New(slog.NewTextHandler(io.Discard, nil)), apierrors.NewErrorHandler(nil, false))

	w := httptest.NewRecorder()
	n, ok := v.ValidateInt(w, httptest.NewRequest(http.MethodGet, "/?limit=20", nil), "limit", 1, 100, 50)
	assert.True(t, ok)
	assert.Equal(t, 20, n)

	n, ok = v.ValidateInt(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "limit", 1, 100, 50)
	assert.True(t, ok)
	assert.Equal(t, 50, n)

	w = httptest.NewRecorder()
	_, ok = v.ValidateInt(w, httptest.NewRequest(http.MethodGet, "/?limit=500", nil), "limit", 1, 100, 50)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f, ok := v.ValidateFloat(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?min_health=62.5", nil), "min_health", 0, 100)
	assert.True(t, ok)
	assert.Equal(t, 62.5, f.Or(0))

	w = httptest.NewRecorder()
	_, ok = v.ValidateFloat(w, httptest.NewRequest(http.MethodGet, "/?min_health=abc", nil), "min_health", 0, 100)
	assert.False(t, ok)

	s, ok := v.ValidateEnum(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?trend=declining", nil), "trend", []string{"accelerating", "declining"}, "")
	assert.True(t, ok)
	assert.Equal(t, "declining", s)

	w = httptest.NewRecorder()
	_, ok = v.ValidateEnum(w, httptest.NewRequest(http.MethodGet, "/?trend=up", nil), "trend", []string{"accelerating", "declining"}, "")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOTelMiddleware(t *testing.T) {
	cfg := infrastructure.DefaultOTelConfig()
	cfg.EnableTracing = true
	cfg.TraceWriter = io.Discard
	providers, err := infrastructure.InitializeOTel(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	m, err := NewOTelMiddleware(providers, nil)
	require.NoError(t, err)

	var traceID string
	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/api/v1/establishments/{id}", func(w http.ResponseWriter, r *http.Request) {
		traceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/establishments/est-001", nil))
	assert.Len(t, traceID, 32)

	w := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `route="/api/v1/establishments/{id}"`)
}

func TestGetRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", GetRealIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7", GetRealIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.3")
	assert.Equal(t, "198.51.100.3", GetRealIP(req))
}
