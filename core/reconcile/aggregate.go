// Package reconcile merges decoded CAD reports into running incident
// aggregates and derives response-time metrics.
package reconcile

import (
	"time"
)

type Lifecycle string

const (
	LifecycleOpen   Lifecycle = "open"
	LifecycleClosed Lifecycle = "closed"
)

// UnitTimelineEntry is the per-unit status timeline, keyed in the aggregate
// by canonical unit id, never by raw token. Timestamps are UTC instants.
type UnitTimelineEntry struct {
	CanonicalID      string     `json:"canonical_id"`
	MutualAid        bool       `json:"mutual_aid"`
	CountsForMetrics bool       `json:"counts_for_metrics"`
	Dispatched       *time.Time `json:"dispatched,omitempty"`
	Enroute          *time.Time `json:"enroute,omitempty"`
	Arrived          *time.Time `json:"arrived,omitempty"`
	TransportStart   *time.Time `json:"transport_start,omitempty"`
	TransportArrive  *time.Time `json:"transport_arrive,omitempty"`
	Available        *time.Time `json:"available,omitempty"`
	Cleared          *time.Time `json:"cleared,omitempty"`
}

// clearedOrAvailable is the instant a unit left the incident. AQ is
// authoritative; AV stands in when the feed never sent AQ.
func (e *UnitTimelineEntry) clearedOrAvailable() *time.Time {
	if e.Cleared != nil {
		return e.Cleared
	}
	return e.Available
}

type DerivedMetrics struct {
	FirstDispatched *time.Time `json:"first_dispatched,omitempty"`
	FirstEnroute    *time.Time `json:"first_enroute,omitempty"`
	FirstOnScene    *time.Time `json:"first_on_scene,omitempty"`
	LastCleared     *time.Time `json:"last_cleared,omitempty"`
}

// ArtifactRefs points at the raw payloads that produced this aggregate.
type ArtifactRefs struct {
	Dispatch string   `json:"dispatch,omitempty"`
	Updates  []string `json:"updates,omitempty"`
	Clear    string   `json:"clear,omitempty"`
}

// IncidentAggregate is the running incident record, identified by the
// vendor-assigned incident number.
type IncidentAggregate struct {
	IncidentNumber string
	Status         Lifecycle
	TypeCode       string
	SubtypeCode    string
	Address        string
	CrossStreets   string
	Municipality   string
	Zone           string
	CallerName     string
	CallerPhone    string
	CallerAddress  string
	CallerSource   string

	// IncidentDate anchors time-of-day resolution: midnight of the day
	// the incident started, in the configured local zone.
	IncidentDate time.Time

	Units     map[string]*UnitTimelineEntry
	Metrics   DerivedMetrics
	Artifacts ArtifactRefs
	Comments  []string

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// ComputeMetrics derives the four response-time metrics from the timeline.
// First-enroute and first-on-scene consider only own-department units that
// count for metrics; last-cleared considers every own-department unit.
func ComputeMetrics(units map[string]*UnitTimelineEntry) DerivedMetrics {
	var m DerivedMetrics
	for _, e := range units {
		if !e.MutualAid {
			m.LastCleared = laterOf(m.LastCleared, e.clearedOrAvailable())
		}
		if e.MutualAid || !e.CountsForMetrics {
			continue
		}
		m.FirstDispatched = earlierOf(m.FirstDispatched, e.Dispatched)
		m.FirstEnroute = earlierOf(m.FirstEnroute, e.Enroute)
		m.FirstOnScene = earlierOf(m.FirstOnScene, e.Arrived)
	}
	return m
}

func earlierOf(cur, candidate *time.Time) *time.Time {
	if candidate == nil {
		return cur
	}
	if cur == nil || candidate.Before(*cur) {
		return candidate
	}
	return cur
}

func laterOf(cur, candidate *time.Time) *time.Time {
	if candidate == nil {
		return cur
	}
	if cur == nil || candidate.After(*cur) {
		return candidate
	}
	return cur
}
