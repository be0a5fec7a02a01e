package api

import "net/http"

// TrainingProvider defines the interface for reading training progress.
type TrainingProvider interface {
	Status() Status
	Reports() []Report
}

// TrainingHandler handles training report requests.
type TrainingHandler struct {
	deps TrainingProvider
}

// NewTrainingHandler creates a new training handler.
func NewTrainingHandler(deps TrainingProvider) *TrainingHandler {
	return &TrainingHandler{deps: deps}
}

type trainingResponse struct {
	Status  Status   `json:"status"`
	Reports []Report `json:"reports"`
}

// HandleTraining handles GET /training requests.
func (h *TrainingHandler) HandleTraining(w http.ResponseWriter, _ *http.Request) {
	reports := h.deps.Reports()
	if reports == nil {
		reports = []Report{}
	}
	writeJSON(w, http.StatusOK, trainingResponse{Status: h.deps.Status(), Reports: reports})
}
