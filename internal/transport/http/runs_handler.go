package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/infrastructure"
	intelmw "github.com/raksha0612/praxiotech-intelligence-engine/internal/middleware"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/services"
)

const defaultHistoryLimit = 20

// RunRequest is the body of POST /api/v1/runs. Empty fields keep the
// configured settings.
type RunRequest struct {
	AsOf      string    `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
	CohortKey string    `json:"cohort_key" validate:"omitempty,oneof=district none"`
	Weights   []float64 `json:"weights" validate:"omitempty,len=5,unit_sum,dive,gte=0,lte=1"`
}

// RunsHandler triggers runs and lists archived ones
type RunsHandler struct {
	service      IntelServiceInterface
	validation   *intelmw.ValidationMiddleware
	query        *intelmw.QueryParamValidator
	runTimeout   time.Duration
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(service IntelServiceInterface, runTimeout time.Duration, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RunsHandler {
	return &RunsHandler{
		service:      service,
		validation:   intelmw.NewValidationMiddleware(logger, errorHandler),
		query:        intelmw.NewQueryParamValidator(logger, errorHandler),
		runTimeout:   runTimeout,
		logger:       logger.With(slog.String("component", "runs_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the run routes
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.With(intelmw.AuditLog(h.logger), h.validation.ValidateRequest).
		Post("/", intelmw.RunTraceHandler(services.TriggerAPI, h.StartRun))
	r.Get("/", h.ListRuns)
	r.Get("/latest", h.LatestRun)
	return r
}

// StartRun handles POST /api/v1/runs. The run executes synchronously and the
// response carries its summary.
func (h *RunsHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var req RunRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "run requested",
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
		slog.String("as_of", req.AsOf),
		slog.String("cohort_key", req.CohortKey))

	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
		// the server write timeout is sized for reads; a run may take longer
		_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(h.runTimeout + 10*time.Second))
	}

	info, err := h.service.Run(ctx, services.RunOptions{
		Trigger:   services.TriggerAPI,
		AsOf:      req.AsOf,
		CohortKey: req.CohortKey,
		Weights:   req.Weights,
	})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		h.errorHandler.HandleError(w, r, mapServiceError(err, ""))
		return
	}

	w.Header().Set("Location", "/api/v1/runs/latest")
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   info,
	})
}

// ListRuns handles GET /api/v1/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, 100, defaultHistoryLimit)
	if !ok {
		return
	}
	runs, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err, ""))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   runs,
		"count":  len(runs),
	})
}

// LatestRun handles GET /api/v1/runs/latest
func (h *RunsHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	info, ok := h.service.LastRun()
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoResult)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   info,
	})
}
