package ingest

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"osprey-cad/config"
	"osprey-cad/core/store"
	"osprey-cad/core/units"
	"osprey-cad/core/utils"
)

// Maintenance runs the scheduled housekeeping: purging archived payloads
// past the retention window (unresolved failures keep theirs) and pruning
// the resolver cache.
type Maintenance struct {
	cfg     config.RetentionConfig
	archive store.ArchiveStore
	cache   *units.CachedResolver
	logger  *utils.Logger
	c       *cron.Cron
}

func NewMaintenance(cfg config.RetentionConfig, archive store.ArchiveStore, cache *units.CachedResolver, logger *utils.Logger) *Maintenance {
	return &Maintenance{
		cfg:     cfg,
		archive: archive,
		cache:   cache,
		logger:  logger,
		c:       cron.New(),
	}
}

func (m *Maintenance) Start() error {
	if m == nil || !m.cfg.Enabled {
		return nil
	}
	if _, err := m.c.AddFunc(m.cfg.PurgeSchedule, m.purge); err != nil {
		return err
	}
	if m.cache != nil {
		if _, err := m.c.AddFunc(m.cfg.CachePruneSchedule, m.cache.PruneExpired); err != nil {
			return err
		}
	}
	m.c.Start()
	return nil
}

func (m *Maintenance) Stop(ctx context.Context) error {
	if m == nil || !m.cfg.Enabled {
		return nil
	}
	select {
	case <-m.c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Maintenance) purge() {
	days := m.cfg.RawMessageDays
	if days <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	if n, err := m.archive.PurgeRawMessagesBefore(ctx, cutoff); err != nil {
		m.logger.Errorf("retention: purge raw messages: %v", err)
	} else if n > 0 {
		m.logger.Infof("retention: purged %d raw messages", n)
	}
	if _, err := m.archive.PurgeResolvedFailuresBefore(ctx, cutoff); err != nil {
		m.logger.Errorf("retention: purge resolved failures: %v", err)
	}
}
