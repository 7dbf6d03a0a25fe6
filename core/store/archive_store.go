package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// RawMessage is a durably archived inbound payload, stored before any
// parsing is attempted.
type RawMessage struct {
	ID         string
	Source     string
	Body       []byte
	ReceivedAt time.Time
}

// IngestFailure is a replayable record of a message that decoded or
// reconciled unsuccessfully, pointing back at the archived payload.
type IngestFailure struct {
	ID             string     `json:"id"`
	ArtifactID     string     `json:"artifact_id"`
	IncidentNumber string     `json:"incident_number,omitempty"`
	ReportKind     string     `json:"report_kind,omitempty"`
	Stage          string     `json:"stage"`
	Error          string     `json:"error"`
	CreatedAt      time.Time  `json:"created_at"`
	Resolved       bool       `json:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

type ArchiveStore interface {
	SaveRawMessage(ctx context.Context, msg *RawMessage) error
	GetRawMessage(ctx context.Context, id string) (*RawMessage, error)
	PurgeRawMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	SaveFailure(ctx context.Context, rec *IngestFailure) error
	GetFailure(ctx context.Context, id string) (*IngestFailure, error)
	ListFailures(ctx context.Context, includeResolved bool, limit int) ([]IngestFailure, error)
	ResolveFailure(ctx context.Context, id string) error
	PurgeResolvedFailuresBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type archiveStore struct {
	db *sql.DB
}

func NewArchiveStore(db *sql.DB) ArchiveStore {
	return &archiveStore{db: db}
}

func (s *archiveStore) SaveRawMessage(ctx context.Context, msg *RawMessage) error {
	if msg.ID == "" {
		return errors.New("raw message id required")
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_messages(id, source, body, received_at) VALUES(?,?,?,?)`,
		msg.ID, msg.Source, msg.Body, msg.ReceivedAt)
	return err
}

func (s *archiveStore) GetRawMessage(ctx context.Context, id string) (*RawMessage, error) {
	var msg RawMessage
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, body, received_at FROM raw_messages WHERE id=?`, id).
		Scan(&msg.ID, &msg.Source, &msg.Body, &msg.ReceivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// PurgeRawMessagesBefore deletes archived payloads older than the cutoff,
// keeping any still referenced by an unresolved failure record.
func (s *archiveStore) PurgeRawMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM raw_messages
		WHERE received_at < ?
		  AND id NOT IN (SELECT artifact_id FROM ingest_failures WHERE resolved = FALSE)`,
		cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *archiveStore) SaveFailure(ctx context.Context, rec *IngestFailure) error {
	if rec.ID == "" {
		return errors.New("failure id required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_failures(id, artifact_id, incident_number, report_kind, stage, error, created_at, resolved)
		VALUES(?,?,?,?,?,?,?,FALSE)`,
		rec.ID, rec.ArtifactID, rec.IncidentNumber, rec.ReportKind, rec.Stage, rec.Error, rec.CreatedAt)
	return err
}

func (s *archiveStore) GetFailure(ctx context.Context, id string) (*IngestFailure, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, artifact_id, incident_number, report_kind, stage, error, created_at, resolved, resolved_at
		FROM ingest_failures WHERE id=?`, id)
	rec, err := scanFailure(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *archiveStore) ListFailures(ctx context.Context, includeResolved bool, limit int) ([]IngestFailure, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, artifact_id, incident_number, report_kind, stage, error, created_at, resolved, resolved_at
		FROM ingest_failures`
	if !includeResolved {
		query += ` WHERE resolved = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []IngestFailure
	for rows.Next() {
		rec, err := scanFailure(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *archiveStore) ResolveFailure(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE ingest_failures SET resolved=TRUE, resolved_at=? WHERE id=? AND resolved=FALSE`, now, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *archiveStore) PurgeResolvedFailuresBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM ingest_failures WHERE resolved=TRUE AND created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanFailure(scan func(...any) error) (*IngestFailure, error) {
	var (
		rec        IngestFailure
		resolvedAt sql.NullTime
	)
	err := scan(&rec.ID, &rec.ArtifactID, &rec.IncidentNumber, &rec.ReportKind, &rec.Stage,
		&rec.Error, &rec.CreatedAt, &rec.Resolved, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		val := resolvedAt.Time
		rec.ResolvedAt = &val
	}
	return &rec, nil
}
