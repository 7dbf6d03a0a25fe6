package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"osprey-cad/core/store"
	"osprey-cad/core/utils"
)

type UnitsHandler struct {
	units  store.UnitsStore
	logger *utils.Logger
}

func NewUnitsHandler(units store.UnitsStore, logger *utils.Logger) *UnitsHandler {
	return &UnitsHandler{units: units, logger: logger}
}

type unitPayload struct {
	CanonicalID      string `json:"canonical_id"`
	Category         string `json:"category"`
	OwnDepartment    bool   `json:"own_department"`
	CountsForMetrics bool   `json:"counts_for_metrics"`
}

func (h *UnitsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.units.ListUnits(r.Context())
	if err != nil {
		h.logger.Errorf("list units: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *UnitsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	var payload unitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if payload.CanonicalID == "" {
		http.Error(w, "canonical_id required", http.StatusBadRequest)
		return
	}
	u := &store.Unit{
		Alias:            alias,
		CanonicalID:      payload.CanonicalID,
		Category:         payload.Category,
		OwnDepartment:    payload.OwnDepartment,
		CountsForMetrics: payload.CountsForMetrics,
	}
	if err := h.units.UpsertUnit(r.Context(), u); err != nil {
		h.logger.Errorf("upsert unit %s: %v", alias, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UnitsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	if err := h.units.DeleteUnit(r.Context(), alias); err != nil {
		h.logger.Errorf("delete unit %s: %v", alias, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
