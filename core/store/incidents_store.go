package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"osprey-cad/core/reconcile"
)

// IncidentsStore persists incident aggregates keyed by their vendor-assigned
// incident number. Callers supply the full merged state; there is no partial
// patch contract at this layer.
type IncidentsStore interface {
	CreateIncident(ctx context.Context, agg *reconcile.IncidentAggregate) error
	GetIncidentByNumber(ctx context.Context, number string) (*reconcile.IncidentAggregate, error)
	UpdateIncident(ctx context.Context, agg *reconcile.IncidentAggregate, expectedVersion int) error
	ListIncidents(ctx context.Context, limit int) ([]reconcile.IncidentAggregate, error)
}

type incidentsStore struct {
	db *sql.DB
}

func NewIncidentsStore(db *sql.DB) IncidentsStore {
	return &incidentsStore{db: db}
}

const incidentColumns = `incident_number, status, type_code, subtype_code, address, cross_streets,
	municipality, zone, caller_name, caller_phone, caller_address, caller_source,
	incident_date, timeline_json, metrics_json, artifacts_json, comments_json,
	created_at, updated_at, version`

func (s *incidentsStore) CreateIncident(ctx context.Context, agg *reconcile.IncidentAggregate) error {
	if strings.TrimSpace(agg.IncidentNumber) == "" {
		return errors.New("incident number required")
	}
	now := time.Now().UTC()
	if agg.CreatedAt.IsZero() {
		agg.CreatedAt = now
	}
	agg.UpdatedAt = now
	agg.Version = 1
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incidents(`+incidentColumns+`)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		agg.IncidentNumber, string(agg.Status), agg.TypeCode, agg.SubtypeCode, agg.Address, agg.CrossStreets,
		agg.Municipality, agg.Zone, agg.CallerName, agg.CallerPhone, agg.CallerAddress, agg.CallerSource,
		agg.IncidentDate, timelineToJSON(agg.Units), toJSON(agg.Metrics), toJSON(agg.Artifacts), commentsToJSON(agg.Comments),
		agg.CreatedAt, agg.UpdatedAt, agg.Version)
	return err
}

func (s *incidentsStore) GetIncidentByNumber(ctx context.Context, number string) (*reconcile.IncidentAggregate, error) {
	if strings.TrimSpace(number) == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+incidentColumns+` FROM incidents WHERE incident_number=?`, number)
	agg, err := scanIncident(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return agg, err
}

func (s *incidentsStore) UpdateIncident(ctx context.Context, agg *reconcile.IncidentAggregate, expectedVersion int) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE incidents SET status=?, type_code=?, subtype_code=?, address=?, cross_streets=?,
			municipality=?, zone=?, caller_name=?, caller_phone=?, caller_address=?, caller_source=?,
			incident_date=?, timeline_json=?, metrics_json=?, artifacts_json=?, comments_json=?,
			updated_at=?, version=version+1
		WHERE incident_number=? AND version=?`,
		string(agg.Status), agg.TypeCode, agg.SubtypeCode, agg.Address, agg.CrossStreets,
		agg.Municipality, agg.Zone, agg.CallerName, agg.CallerPhone, agg.CallerAddress, agg.CallerSource,
		agg.IncidentDate, timelineToJSON(agg.Units), toJSON(agg.Metrics), toJSON(agg.Artifacts), commentsToJSON(agg.Comments),
		now, agg.IncidentNumber, expectedVersion)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrConflict
	}
	agg.Version = expectedVersion + 1
	agg.UpdatedAt = now
	return nil
}

func (s *incidentsStore) ListIncidents(ctx context.Context, limit int) ([]reconcile.IncidentAggregate, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+incidentColumns+` FROM incidents ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []reconcile.IncidentAggregate
	for rows.Next() {
		agg, err := scanIncident(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *agg)
	}
	return out, rows.Err()
}

func scanIncident(scan func(...any) error) (*reconcile.IncidentAggregate, error) {
	var (
		agg           reconcile.IncidentAggregate
		status        string
		incidentDate  sql.NullTime
		timelineJSON  string
		metricsJSON   string
		artifactsJSON string
		commentsJSON  string
	)
	err := scan(
		&agg.IncidentNumber, &status, &agg.TypeCode, &agg.SubtypeCode, &agg.Address, &agg.CrossStreets,
		&agg.Municipality, &agg.Zone, &agg.CallerName, &agg.CallerPhone, &agg.CallerAddress, &agg.CallerSource,
		&incidentDate, &timelineJSON, &metricsJSON, &artifactsJSON, &commentsJSON,
		&agg.CreatedAt, &agg.UpdatedAt, &agg.Version)
	if err != nil {
		return nil, err
	}
	agg.Status = reconcile.Lifecycle(status)
	if incidentDate.Valid {
		agg.IncidentDate = incidentDate.Time
	}
	agg.Units = timelineFromJSON(timelineJSON)
	_ = json.Unmarshal([]byte(metricsJSON), &agg.Metrics)
	_ = json.Unmarshal([]byte(artifactsJSON), &agg.Artifacts)
	_ = json.Unmarshal([]byte(commentsJSON), &agg.Comments)
	return &agg, nil
}

func timelineToJSON(units map[string]*reconcile.UnitTimelineEntry) string {
	if len(units) == 0 {
		return "{}"
	}
	return toJSON(units)
}

func timelineFromJSON(raw string) map[string]*reconcile.UnitTimelineEntry {
	units := map[string]*reconcile.UnitTimelineEntry{}
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &units)
	}
	return units
}

func commentsToJSON(comments []string) string {
	if len(comments) == 0 {
		return "[]"
	}
	return toJSON(comments)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
