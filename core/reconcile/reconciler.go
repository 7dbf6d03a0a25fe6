package reconcile

import (
	"context"
	"time"

	"osprey-cad/core/cad"
	"osprey-cad/core/units"
	"osprey-cad/core/utils"
)

type Transition string

const (
	TransitionCreated Transition = "created"
	TransitionUpdated Transition = "updated"
	TransitionClosed  Transition = "closed"
)

// Outcome is emitted after each successful reconciliation for the
// surrounding application to persist and broadcast.
type Outcome struct {
	Aggregate  *IncidentAggregate
	Metrics    DerivedMetrics
	Transition Transition
}

// Reconciler merges parsed reports into incident aggregates. It is pure with
// respect to storage: the caller fetches the prior aggregate and persists
// the result, serialized per incident number.
type Reconciler struct {
	resolver units.Resolver
	loc      *time.Location
	logger   *utils.Logger
}

func New(resolver units.Resolver, loc *time.Location, logger *utils.Logger) *Reconciler {
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{resolver: resolver, loc: loc, logger: logger}
}

// Apply merges a report into the prior aggregate (nil when none exists) and
// returns the new aggregate with recomputed metrics.
//
// State machine: ABSENT+DISPATCH creates an open aggregate; OPEN+DISPATCH
// merges more units; CLEAR closes, creating the aggregate first if the
// dispatch was never received. A report for an already CLOSED incident
// merges without reopening and is surfaced as an update.
//
// Replays are safe: merges are keyed by canonical unit id with
// last-write-wins per field, so byte-identical input changes nothing.
func (r *Reconciler) Apply(ctx context.Context, rpt *cad.ParsedReport, prior *IncidentAggregate, artifactID string) (*Outcome, error) {
	if rpt == nil || rpt.IncidentNumber == "" {
		return nil, &cad.DecodeError{Reason: "report missing incident number"}
	}
	now := time.Now().UTC()

	var agg *IncidentAggregate
	transition := TransitionUpdated
	if prior == nil {
		agg = &IncidentAggregate{
			IncidentNumber: rpt.IncidentNumber,
			Status:         LifecycleOpen,
			IncidentDate:   incidentDate(rpt, r.loc),
			Units:          map[string]*UnitTimelineEntry{},
			CreatedAt:      now,
		}
		transition = TransitionCreated
	} else {
		agg = prior.clone()
	}

	mergeFields(agg, rpt)
	r.recordArtifact(agg, rpt.Kind, artifactID)
	mergeComments(agg, rpt.Comments)

	anchor := anchorSeconds(agg, rpt, r.loc)
	for i := range rpt.Units {
		r.mergeObservation(ctx, agg, &rpt.Units[i], anchor)
	}

	if rpt.Kind == cad.ReportClear {
		wasClosed := prior != nil && prior.Status == LifecycleClosed
		agg.Status = LifecycleClosed
		if !wasClosed {
			transition = TransitionClosed
		}
	}

	agg.Metrics = ComputeMetrics(agg.Units)
	agg.UpdatedAt = now
	return &Outcome{Aggregate: agg, Metrics: agg.Metrics, Transition: transition}, nil
}

func (r *Reconciler) mergeObservation(ctx context.Context, agg *IncidentAggregate, ob *cad.UnitObservation, anchor int) {
	if ob.RawUnit == "" {
		return
	}
	res, err := r.resolver.Resolve(ctx, ob.RawUnit)
	if err != nil {
		r.logger.Warnf("unit resolve %q: %v", ob.RawUnit, err)
		res = units.DefaultResolution(ob.RawUnit)
	}
	entry, ok := agg.Units[res.CanonicalID]
	if !ok {
		entry = &UnitTimelineEntry{CanonicalID: res.CanonicalID}
		agg.Units[res.CanonicalID] = entry
	}
	entry.MutualAid = !res.OwnDepartment
	entry.CountsForMetrics = res.CountsForMetrics

	setTime := func(dst **time.Time, tod string) {
		if tod == "" {
			return
		}
		if t := resolveTimeOfDay(tod, agg.IncidentDate, anchor, r.loc); t != nil {
			*dst = t
		}
	}
	setTime(&entry.Dispatched, ob.Dispatched)
	setTime(&entry.Enroute, ob.Enroute)
	setTime(&entry.Arrived, ob.Arrived)
	setTime(&entry.TransportStart, ob.TransportStart)
	setTime(&entry.TransportArrive, ob.TransportArrive)
	setTime(&entry.Available, ob.Available)
	setTime(&entry.Cleared, ob.Cleared)
}

// mergeFields applies the report's descriptive fields; a non-empty report
// value wins, an empty one never erases prior data.
func mergeFields(agg *IncidentAggregate, rpt *cad.ParsedReport) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&agg.TypeCode, rpt.TypeCode)
	set(&agg.SubtypeCode, rpt.SubtypeCode)
	set(&agg.Address, rpt.Address)
	set(&agg.CrossStreets, rpt.CrossStreets)
	set(&agg.Municipality, rpt.Municipality)
	set(&agg.Zone, rpt.Zone)
	set(&agg.CallerName, rpt.CallerName)
	set(&agg.CallerPhone, rpt.CallerPhone)
	set(&agg.CallerAddress, rpt.CallerAddress)
	set(&agg.CallerSource, rpt.CallerSource)
}

func (r *Reconciler) recordArtifact(agg *IncidentAggregate, kind cad.ReportKind, artifactID string) {
	if artifactID == "" {
		return
	}
	if kind == cad.ReportClear {
		agg.Artifacts.Clear = artifactID
		return
	}
	if agg.Artifacts.Dispatch == "" {
		agg.Artifacts.Dispatch = artifactID
		return
	}
	if agg.Artifacts.Dispatch == artifactID {
		return
	}
	for _, id := range agg.Artifacts.Updates {
		if id == artifactID {
			return
		}
	}
	agg.Artifacts.Updates = append(agg.Artifacts.Updates, artifactID)
}

func mergeComments(agg *IncidentAggregate, comments []string) {
	seen := make(map[string]bool, len(agg.Comments))
	for _, c := range agg.Comments {
		seen[c] = true
	}
	for _, c := range comments {
		if !seen[c] {
			agg.Comments = append(agg.Comments, c)
			seen[c] = true
		}
	}
}

func (a *IncidentAggregate) clone() *IncidentAggregate {
	cp := *a
	cp.Units = make(map[string]*UnitTimelineEntry, len(a.Units))
	for id, e := range a.Units {
		ec := *e
		cp.Units[id] = &ec
	}
	cp.Comments = append([]string(nil), a.Comments...)
	cp.Artifacts.Updates = append([]string(nil), a.Artifacts.Updates...)
	return &cp
}
