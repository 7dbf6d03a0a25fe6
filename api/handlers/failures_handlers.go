package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"osprey-cad/core/ingest"
	"osprey-cad/core/store"
	"osprey-cad/core/utils"
)

type FailuresHandler struct {
	archive  store.ArchiveStore
	pipeline *ingest.Pipeline
	logger   *utils.Logger
}

func NewFailuresHandler(archive store.ArchiveStore, pipeline *ingest.Pipeline, logger *utils.Logger) *FailuresHandler {
	return &FailuresHandler{archive: archive, pipeline: pipeline, logger: logger}
}

func (h *FailuresHandler) List(w http.ResponseWriter, r *http.Request) {
	includeResolved := r.URL.Query().Get("all") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.archive.ListFailures(r.Context(), includeResolved, limit)
	if err != nil {
		h.logger.Errorf("list failures: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Replay re-runs the archived payload behind a failure record through the
// full pipeline and marks the record resolved on success. Reconciliation is
// idempotent, so replaying after a partial success is safe.
func (h *FailuresHandler) Replay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.archive.GetFailure(r.Context(), id)
	if err != nil {
		h.logger.Errorf("get failure %s: %v", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if rec.Resolved {
		http.Error(w, "already resolved", http.StatusConflict)
		return
	}
	msg, err := h.archive.GetRawMessage(r.Context(), rec.ArtifactID)
	if err != nil || msg == nil {
		h.logger.Errorf("raw message %s for failure %s: %v", rec.ArtifactID, id, err)
		http.Error(w, "raw payload unavailable", http.StatusGone)
		return
	}
	out, err := h.pipeline.ProcessArchived(r.Context(), msg.Body, rec.ArtifactID)
	if err != nil {
		http.Error(w, "replay failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	if err := h.archive.ResolveFailure(r.Context(), id); err != nil {
		h.logger.Warnf("resolve failure %s: %v", id, err)
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		IncidentNumber: out.Aggregate.IncidentNumber,
		Transition:     out.Transition,
	})
}
