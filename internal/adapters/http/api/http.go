// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/crystalball/internal/app"
	"github.com/okian/crystalball/internal/domain/features"
	"github.com/okian/crystalball/internal/domain/stats"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the predictor implementation.
type Dependencies interface {
	// Forecast answers an ad-hoc match query.
	Forecast(ctx context.Context, q features.Query) (Prediction, error)

	// Read operations expose pipeline state. Snapshot is nil until data is read.
	Snapshot() *stats.Snapshot
	Status() Status
	Reports() []Report
	Ready() bool
}

// Read shapes returned by the predictor.
type (
	Prediction = service.Prediction
	Status     = service.Status
	Report     = service.Report
)

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	predictHandler  *PredictHandler
	statsHandler    *StatsHandler
	trainingHandler *TrainingHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		predictHandler:  NewPredictHandler(deps),
		statsHandler:    NewStatsHandler(deps),
		trainingHandler: NewTrainingHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.Handle("/metrics", s.healthHandler.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict")).Methods(http.MethodGet)
	r.HandleFunc("/stats/{team}/{window}", MetricsMiddleware(s.statsHandler.HandleTeamStats, "stats")).Methods(http.MethodGet)
	r.HandleFunc("/teams/ranked", MetricsMiddleware(s.statsHandler.HandleRanked, "ranked")).Methods(http.MethodGet)
	r.HandleFunc("/training", MetricsMiddleware(s.trainingHandler.HandleTraining, "training")).Methods(http.MethodGet)
}

// Router returns a new router with every route registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates predictor error kinds into HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrUnknownTeam):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, features.ErrFeatureNotFound):
		writeError(w, http.StatusUnprocessableEntity, "feature_not_found", err)
	case errors.Is(err, service.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
