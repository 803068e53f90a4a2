package server

import (
	"encoding/json"
	"net/http"

	"ScoreFM/config"
	"ScoreFM/core/generate"
	"ScoreFM/core/score"
	"ScoreFM/logger"
	"ScoreFM/storage"
	"ScoreFM/task"
)

// APIHandler carries every dependency the HTTP handlers need. Nothing
// here is a package-level singleton; the registry and pool are injected.
type APIHandler struct {
	registry *task.Registry
	pool     *task.Pool
	worker   *generate.Worker
	pipeline *score.Pipeline
	store    *storage.ArtifactStore // may be nil
	cfg      *config.Config
}

// NewAPIHandler wires the API handler.
func NewAPIHandler(
	registry *task.Registry,
	pool *task.Pool,
	worker *generate.Worker,
	pipeline *score.Pipeline,
	store *storage.ArtifactStore,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		registry: registry,
		pool:     pool,
		worker:   worker,
		pipeline: pipeline,
		store:    store,
		cfg:      cfg,
	}
}

// writeJSON sends a JSON body with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

// writeError sends {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"error": msg})
}
