// Package http exposes the generation pipeline over HTTP: POST /comments
// plus health, metrics and cache diagnostics.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/soratext/soratext/internal/cache"
	"github.com/soratext/soratext/internal/memmon"
	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
	"github.com/soratext/soratext/internal/pipeline"
)

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	pipeline  *pipeline.Orchestrator
	fcache    *cache.LayeredCache // may be nil
	monitor   *memmon.Monitor     // may be nil
	logger    *zap.Logger
	startTime time.Time
}

// NewHandler returns a new Handler.
func NewHandler(p *pipeline.Orchestrator, fcache *cache.LayeredCache, monitor *memmon.Monitor, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline:  p,
		fcache:    fcache,
		monitor:   monitor,
		logger:    logger,
		startTime: time.Now(),
	}
}

// commentRequest is the POST /comments body.
type commentRequest struct {
	Location        string  `json:"location"`
	Datetime        string  `json:"datetime,omitempty"` // RFC3339, optional
	Lat             float64 `json:"lat,omitempty"`
	Lon             float64 `json:"lon,omitempty"`
	Provider        string  `json:"llm_provider,omitempty"`
	ExcludePrevious bool    `json:"exclude_previous,omitempty"`
}

// PostComments handles POST /comments.
func (h *Handler) PostComments(w http.ResponseWriter, r *http.Request) {
	var body commentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return
	}
	if body.Location == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", "location is required")
		return
	}
	if body.Provider != "" && body.Provider != h.pipeline.Provider() {
		writeError(w, r, http.StatusBadRequest, "INVALID_PROVIDER",
			"llm_provider "+body.Provider+" is not active on this instance")
		return
	}

	req := pipeline.Request{Location: body.Location, ExcludePrevious: body.ExcludePrevious}
	if body.Datetime != "" {
		t, err := time.Parse(time.RFC3339, body.Datetime)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_DATETIME", "datetime must be RFC3339")
			return
		}
		req.Datetime = t.In(models.JST)
	}
	if body.Lat != 0 || body.Lon != 0 {
		req.Coord = &models.LocationCoordinate{Name: body.Location, Latitude: body.Lat, Longitude: body.Lon}
	}

	state := h.pipeline.Run(r.Context(), req)
	if state.SelectedPair == nil {
		writeGenerationError(w, r, state)
		return
	}

	// Selection exhaustion still produces safe default copy; the success
	// flag and the errors array carry the failure.
	resp := map[string]interface{}{
		"request_id":      state.RequestID,
		"location":        state.LocationName,
		"target_datetime": state.TargetDatetime.Format(time.RFC3339),
		"success":         state.Success,
		"final_comment":   state.FinalComment,
		"weather_comment": state.SelectedPair.WeatherComment.Text,
		"advice":          state.SelectedPair.AdviceComment.Text,
		"retry_count":     state.RetryCount,
		"metadata":        state.Metadata,
		"warnings":        state.Warnings,
	}
	if len(state.Errors) > 0 {
		resp["errors"] = state.Errors
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeGenerationError maps the last stage error onto an HTTP status.
func writeGenerationError(w http.ResponseWriter, r *http.Request, state *models.GenerationState) {
	kind := models.ErrKindServer
	message := "comment generation failed"
	if n := len(state.Errors); n > 0 {
		kind = state.Errors[n-1].Kind
		message = state.Errors[n-1].Message
	}

	status := http.StatusServiceUnavailable
	code := "GENERATION_FAILED"
	switch kind {
	case models.ErrKindLocation:
		status, code = http.StatusBadRequest, "INVALID_LOCATION"
	case models.ErrKindAPIKeyMissing, models.ErrKindAPIKeyInvalid:
		status, code = http.StatusServiceUnavailable, "UPSTREAM_AUTH"
	case models.ErrKindRateLimit:
		status, code = http.StatusServiceUnavailable, "UPSTREAM_RATE_LIMITED"
	case models.ErrKindTimeout:
		status, code = http.StatusGatewayTimeout, "TIMEOUT"
	case models.ErrKindEmptyData, models.ErrKindCorpus:
		status, code = http.StatusServiceUnavailable, "NO_DATA"
	}

	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("generation failed",
			zap.String("request_id", state.RequestID),
			zap.String("kind", string(kind)),
			zap.String("message", message))
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"kind":      string(kind),
			"message":   message,
			"requestId": state.RequestID,
		},
	})
}

// GetHealth handles GET /health. Degrades only on critical memory pressure;
// upstream trouble surfaces per request, not here.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	statusCode := http.StatusOK
	checks := make(map[string]string)

	if h.monitor != nil && !h.monitor.Disabled() {
		switch h.monitor.CheckUsage() {
		case memmon.LevelCritical:
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
			checks["memory"] = "critical"
		case memmon.LevelWarn:
			checks["memory"] = "warn"
		default:
			checks["memory"] = "ok"
		}
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"service":   "soratext",
		"version":   "dev",
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetCacheStats handles GET /cache/stats.
func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	if h.fcache == nil {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	resp := make(map[string]interface{})
	for k, v := range h.fcache.Stats() {
		resp[k] = v
	}
	resp["estimated_memory_mb"] = memmon.EstimateCacheMemory(h.fcache.Sizes(), 0)
	writeJSON(w, http.StatusOK, resp)
}

// Router assembles the mux with middleware. limiter may be nil.
func (h *Handler) Router(limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(h.logger))
	r.Use(MetricsMiddleware)

	generate := r.PathPrefix("/comments").Subrouter()
	generate.Use(RateLimitMiddleware(limiter))
	if requestTimeout > 0 {
		generate.Use(TimeoutMiddleware(requestTimeout))
	}
	generate.HandleFunc("", h.PostComments).Methods(http.MethodPost)

	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	r.HandleFunc("/cache/stats", h.GetCacheStats).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
