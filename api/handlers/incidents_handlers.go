package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"osprey-cad/core/reconcile"
	"osprey-cad/core/store"
	"osprey-cad/core/utils"
)

type IncidentsHandler struct {
	incidents store.IncidentsStore
	logger    *utils.Logger
}

func NewIncidentsHandler(incidents store.IncidentsStore, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{incidents: incidents, logger: logger}
}

type incidentView struct {
	IncidentNumber string                                    `json:"incident_number"`
	Status         reconcile.Lifecycle                       `json:"status"`
	TypeCode       string                                    `json:"type_code,omitempty"`
	SubtypeCode    string                                    `json:"subtype_code,omitempty"`
	Address        string                                    `json:"address,omitempty"`
	CrossStreets   string                                    `json:"cross_streets,omitempty"`
	Municipality   string                                    `json:"municipality,omitempty"`
	Zone           string                                    `json:"zone,omitempty"`
	IncidentDate   time.Time                                 `json:"incident_date"`
	Units          map[string]*reconcile.UnitTimelineEntry   `json:"units"`
	Metrics        reconcile.DerivedMetrics                  `json:"metrics"`
	Comments       []string                                  `json:"comments,omitempty"`
	UpdatedAt      time.Time                                 `json:"updated_at"`
}

func incidentToView(agg *reconcile.IncidentAggregate) incidentView {
	return incidentView{
		IncidentNumber: agg.IncidentNumber,
		Status:         agg.Status,
		TypeCode:       agg.TypeCode,
		SubtypeCode:    agg.SubtypeCode,
		Address:        agg.Address,
		CrossStreets:   agg.CrossStreets,
		Municipality:   agg.Municipality,
		Zone:           agg.Zone,
		IncidentDate:   agg.IncidentDate,
		Units:          agg.Units,
		Metrics:        agg.Metrics,
		Comments:       agg.Comments,
		UpdatedAt:      agg.UpdatedAt,
	}
}

func (h *IncidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	agg, err := h.incidents.GetIncidentByNumber(r.Context(), number)
	if err != nil {
		h.logger.Errorf("get incident %s: %v", number, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if agg == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, incidentToView(agg))
}

func (h *IncidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.incidents.ListIncidents(r.Context(), limit)
	if err != nil {
		h.logger.Errorf("list incidents: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	views := make([]incidentView, 0, len(list))
	for i := range list {
		views = append(views, incidentToView(&list[i]))
	}
	writeJSON(w, http.StatusOK, views)
}
