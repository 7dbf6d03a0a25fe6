// Package handlers implements the HTTP handlers behind the api router.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"osprey-cad/config"
	"osprey-cad/core/cad"
	"osprey-cad/core/ingest"
	"osprey-cad/core/reconcile"
	"osprey-cad/core/utils"
)

type MessagesHandler struct {
	cfg      *config.AppConfig
	pipeline *ingest.Pipeline
	logger   *utils.Logger
}

func NewMessagesHandler(cfg *config.AppConfig, pipeline *ingest.Pipeline, logger *utils.Logger) *MessagesHandler {
	return &MessagesHandler{cfg: cfg, pipeline: pipeline, logger: logger}
}

type ingestResponse struct {
	IncidentNumber string               `json:"incident_number"`
	Transition     reconcile.Transition `json:"transition"`
}

// Ingest accepts a raw CAD payload body and runs it through the pipeline.
// A decode failure is the sender's problem (400); anything downstream is
// already durably recorded for replay (502).
func (h *MessagesHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.cfg.Ingest.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > maxBytes {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(body) == 0 {
		http.Error(w, "empty payload", http.StatusBadRequest)
		return
	}

	source := r.Header.Get("X-Osprey-Source")
	out, err := h.pipeline.Process(r.Context(), body, source)
	if err != nil {
		var decodeErr *cad.DecodeError
		if errors.As(err, &decodeErr) {
			http.Error(w, decodeErr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "processing failed; recorded for replay", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusAccepted, ingestResponse{
		IncidentNumber: out.Aggregate.IncidentNumber,
		Transition:     out.Transition,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
