package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", InvalidRequestWithError(fmt.Errorf("unexpected EOF")), http.StatusBadRequest, "INVALID_REQUEST"},
		{"validation", ErrValidation("weights", "need five values"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"not found", NotFoundError("cohort", "Wedding"), http.StatusNotFound, "NOT_FOUND"},
		{"run failed", ErrRunFailed(fmt.Errorf("read input")), http.StatusInternalServerError, "RUN_FAILED"},
		{"multi validation", NewValidationErrors([]ValidationError{{Field: "a"}, {Field: "b"}}), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"no result", ErrNoResult, http.StatusServiceUnavailable, "NO_RESULT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.Equal(t, tt.err.Message, tt.err.Error())
		})
	}

	assert.Contains(t, NotFoundError("cohort", "Wedding").Message, `"Wedding"`)
}

func TestAPIErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("trigger run: %w", ErrRunInProgress)
	var apiErr *APIError
	require.True(t, stderrors.As(wrapped, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestErrorResponseRender(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, render.Render(w, r, NewErrorResponse(ErrRateLimitExceeded)))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var body struct {
		Success bool     `json:"success"`
		Error   APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Error.ErrorCode)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrServiceUnavailable)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"SERVICE_UNAVAILABLE"`)
}

func TestProblemDetailsJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/x").
		WithExtension("trace_id", "abc").
		WithExtension("type", "ignored")

	data, err := json.Marshal(pd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"/errors/not-found","title":"Not Found","status":404,"instance":"/x","trace_id":"abc"}`, string(data))

	var zero ProblemDetails
	zero.WithExtension("k", 1)
	assert.Equal(t, 1, zero.Extensions["k"])
}

func TestAppError(t *testing.T) {
	cause := fmt.Errorf("no such file")
	err := NewParsingError("read establishments.xlsx", cause).WithContext("row", 12)

	assert.Equal(t, "[PARSING] read establishments.xlsx: no such file", err.Error())
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, 12, err.Context["row"])

	assert.Equal(t, "[NOT_FOUND] run 7 not found", NewNotFoundError("run 7").Error())
	assert.Equal(t, ErrTypeConflict, NewConflictError("busy").Type)
	assert.Equal(t, ErrTypeConfig, NewConfigError("bad", nil).Type)
	assert.Equal(t, ErrTypeExport, NewExportError("write", nil).Type)
	assert.Equal(t, ErrTypeValidation, NewAppValidationError("bad").Type)

	var bare AppError
	bare.WithContext("k", "v")
	assert.Equal(t, "v", bare.Context["k"])
}
