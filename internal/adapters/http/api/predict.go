package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/crystalball/internal/domain/features"
)

// ForecastDependencies defines the interface for prediction queries.
type ForecastDependencies interface {
	Forecast(ctx context.Context, q features.Query) (Prediction, error)
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps ForecastDependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps ForecastDependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// HandlePredict handles GET /predict?year=&team1=&team2= requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	res, err := h.deps.Forecast(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseQuery(r *http.Request) (features.Query, error) {
	v := r.URL.Query()
	raw := strings.TrimSpace(v.Get("year"))
	if raw == "" {
		return features.Query{}, fmt.Errorf("%w: missing year", ErrBadRequest)
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return features.Query{}, fmt.Errorf("%w: invalid year %q", ErrBadRequest, raw)
	}
	q := features.Query{Year: year, Team1: v.Get("team1"), Team2: v.Get("team2")}
	switch {
	case q.Team1 == "":
		return features.Query{}, fmt.Errorf("%w: missing team1", ErrBadRequest)
	case q.Team2 == "":
		return features.Query{}, fmt.Errorf("%w: missing team2", ErrBadRequest)
	}
	return q, nil
}
