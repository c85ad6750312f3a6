package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "github.com/raksha0612/praxiotech-intelligence-engine/internal/errors"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
	intelmw "github.com/raksha0612/praxiotech-intelligence-engine/internal/middleware"
	"github.com/raksha0612/praxiotech-intelligence-engine/internal/services"
)

const maxListLimit = 1000

var (
	trendValues = []string{
		string(intel.TrendAccelerating),
		string(intel.TrendStable),
		string(intel.TrendDeclining),
		string(intel.TrendInsufficientHistory),
	}
	statusValues = []string{
		string(intel.StatusOpportunity),
		string(intel.StatusNoOpportunity),
		string(intel.StatusInsufficientData),
	}
)

// IntelHandler serves the latest result
type IntelHandler struct {
	service      IntelServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	query        *intelmw.QueryParamValidator
}

// NewIntelHandler creates a new intel handler
func NewIntelHandler(service IntelServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *IntelHandler {
	return &IntelHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "intel_handler")),
		errorHandler: errorHandler,
		query:        intelmw.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the result routes
func (h *IntelHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/establishments", h.ListEstablishments)
	r.Get("/establishments/{id}", h.GetEstablishment)
	r.Get("/cohorts", h.ListCohorts)
	r.Get("/cohorts/{district}", h.GetCohort)
	r.Get("/opportunities", h.ListOpportunities)
	r.Get("/market", h.GetMarket)
	return r
}

// ListEstablishments handles GET /api/v1/establishments
func (h *IntelHandler) ListEstablishments(w http.ResponseWriter, r *http.Request) {
	minHealth, ok := h.query.ValidateFloat(w, r, "min_health", 0, 100)
	if !ok {
		return
	}
	trend, ok := h.query.ValidateEnum(w, r, "trend", trendValues, "")
	if !ok {
		return
	}
	status, ok := h.query.ValidateEnum(w, r, "status", statusValues, "")
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 0, maxListLimit, 0)
	if !ok {
		return
	}

	filter := services.EstablishmentFilter{
		District:  r.URL.Query().Get("district"),
		Trend:     intel.Trend(trend),
		Status:    intel.OpportunityStatus(status),
		MinHealth: minHealth,
		Limit:     limit,
	}

	bundles, err := h.service.Establishments(filter)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	h.logger.DebugContext(r.Context(), "establishments listed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("count", len(bundles)))

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   bundles,
		"count":  len(bundles),
	})
}

// GetEstablishment handles GET /api/v1/establishments/{id}
func (h *IntelHandler) GetEstablishment(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	bundle, err := h.service.Establishment(id)
	if err != nil {
		h.fail(w, r, err, id)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   bundle,
	})
}

// ListCohorts handles GET /api/v1/cohorts
func (h *IntelHandler) ListCohorts(w http.ResponseWriter, r *http.Request) {
	cohorts, err := h.service.Cohorts()
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   cohorts,
		"count":  len(cohorts),
	})
}

// GetCohort handles GET /api/v1/cohorts/{district}
func (h *IntelHandler) GetCohort(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "district")
	summary, members, err := h.service.Cohort(name)
	if err != nil {
		h.fail(w, r, err, name)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":  "success",
		"data":    summary,
		"members": members,
		"count":   len(members),
	})
}

// ListOpportunities handles GET /api/v1/opportunities
func (h *IntelHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	opportunities, err := h.service.Opportunities()
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   opportunities,
		"count":  len(opportunities),
	})
}

// GetMarket handles GET /api/v1/market
func (h *IntelHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Result()
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"as_of":  result.AsOf.Format("2006-01-02"),
		"data":   result.Market,
	})
}

func (h *IntelHandler) fail(w http.ResponseWriter, r *http.Request, err error, key string) {
	h.errorHandler.HandleError(w, r, mapServiceError(err, key))
}

// pathParam returns a decoded chi URL parameter
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
