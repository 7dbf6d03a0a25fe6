package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"osprey-cad/core/units"
)

// Unit is a registry row mapping a wire alias to a canonical unit identity.
type Unit struct {
	Alias            string    `json:"alias"`
	CanonicalID      string    `json:"canonical_id"`
	Category         string    `json:"category"`
	OwnDepartment    bool      `json:"own_department"`
	CountsForMetrics bool      `json:"counts_for_metrics"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type UnitsStore interface {
	units.Resolver
	UpsertUnit(ctx context.Context, u *Unit) error
	GetUnitByAlias(ctx context.Context, alias string) (*Unit, error)
	ListUnits(ctx context.Context) ([]Unit, error)
	DeleteUnit(ctx context.Context, alias string) error
}

type unitsStore struct {
	db *sql.DB
}

func NewUnitsStore(db *sql.DB) UnitsStore {
	return &unitsStore{db: db}
}

// Resolve implements units.Resolver against the registry table. Unknown
// aliases get the conservative default (mutual aid, excluded from metrics)
// rather than an error; only infrastructure failures propagate so that a
// caching wrapper can decide to serve stale data.
func (s *unitsStore) Resolve(ctx context.Context, rawToken string) (units.Resolution, error) {
	u, err := s.GetUnitByAlias(ctx, rawToken)
	if err != nil {
		return units.DefaultResolution(rawToken), err
	}
	if u == nil {
		return units.DefaultResolution(rawToken), nil
	}
	return units.Resolution{
		CanonicalID:      u.CanonicalID,
		Category:         units.Category(u.Category),
		OwnDepartment:    u.OwnDepartment,
		CountsForMetrics: u.CountsForMetrics,
	}, nil
}

func (s *unitsStore) UpsertUnit(ctx context.Context, u *Unit) error {
	alias := units.NormalizeToken(u.Alias)
	if alias == "" {
		return errors.New("unit alias required")
	}
	if u.Category == "" {
		u.Category = string(units.CategoryPrimary)
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO units(alias, canonical_id, category, own_department, counts_for_metrics, updated_at)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(alias) DO UPDATE SET
			canonical_id=excluded.canonical_id,
			category=excluded.category,
			own_department=excluded.own_department,
			counts_for_metrics=excluded.counts_for_metrics,
			updated_at=excluded.updated_at`,
		alias, units.NormalizeToken(u.CanonicalID), u.Category, u.OwnDepartment, u.CountsForMetrics, now)
	return err
}

func (s *unitsStore) GetUnitByAlias(ctx context.Context, alias string) (*Unit, error) {
	var u Unit
	err := s.db.QueryRowContext(ctx, `
		SELECT alias, canonical_id, category, own_department, counts_for_metrics, updated_at
		FROM units WHERE alias=?`, units.NormalizeToken(alias)).
		Scan(&u.Alias, &u.CanonicalID, &u.Category, &u.OwnDepartment, &u.CountsForMetrics, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *unitsStore) ListUnits(ctx context.Context) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alias, canonical_id, category, own_department, counts_for_metrics, updated_at
		FROM units ORDER BY alias`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.Alias, &u.CanonicalID, &u.Category, &u.OwnDepartment, &u.CountsForMetrics, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *unitsStore) DeleteUnit(ctx context.Context, alias string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM units WHERE alias=?`, units.NormalizeToken(alias))
	return err
}
