package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/crystalball/internal/domain/stats"
	"github.com/okian/crystalball/internal/domain/teamkey"
)

// SnapshotProvider defines the interface for reading aggregated stats.
type SnapshotProvider interface {
	Snapshot() *stats.Snapshot
}

// StatsHandler handles team stats requests.
type StatsHandler struct {
	deps SnapshotProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps SnapshotProvider) *StatsHandler {
	return &StatsHandler{deps: deps}
}

type teamStatsResponse struct {
	Key    string    `json:"key"`
	Team   string    `json:"team"`
	Window string    `json:"window"`
	Stats  stats.Row `json:"stats"`
}

type rankedResponse struct {
	Window string          `json:"window"`
	Stat   string          `json:"stat"`
	Teams  []stats.Ranking `json:"teams"`
}

// HandleTeamStats handles GET /stats/{team}/{window} requests. Unknown teams are 404.
func (h *StatsHandler) HandleTeamStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	team := vars["team"]
	window, err := teamkey.ParseWindow(vars["window"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	key, err := teamkey.Encode(team, window)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap := h.deps.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", ErrNoData)
		return
	}
	if _, ok := snap.Lookup(team, teamkey.AllTime); !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("no stats for %s", key))
		return
	}
	// Years past the table are computed on demand, as predictions do.
	row := snap.At(team, window)
	writeJSON(w, http.StatusOK, teamStatsResponse{Key: key, Team: team, Window: window.String(), Stats: row})
}

// HandleRanked handles GET /teams/ranked?window=&stat= requests. window
// defaults to all_time and stat to matches_won_percent.
func (h *StatsHandler) HandleRanked(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	rawWindow := v.Get("window")
	if rawWindow == "" {
		rawWindow = teamkey.AllTimeLiteral
	}
	window, err := teamkey.ParseWindow(rawWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	stat := stats.MatchesWonPercent
	if raw := v.Get("stat"); raw != "" {
		name, ok := stats.ParseStatName(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %q", stats.ErrUnknownStat, raw))
			return
		}
		stat = name
	}
	snap := h.deps.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", ErrNoData)
		return
	}
	ranked, err := snap.Ranked(window, stat)
	if errors.Is(err, stats.ErrUnknownStat) {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rankedResponse{Window: window.String(), Stat: string(stat), Teams: ranked})
}
