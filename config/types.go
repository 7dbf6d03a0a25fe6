package config

import "time"

type AppConfig struct {
	DBDriver    string          `yaml:"db_driver" env:"OSPREY_DB_DRIVER" env-default:"sqlite"`
	DBURL       string          `yaml:"db_url" env:"OSPREY_DB_URL"`
	DBPath      string          `yaml:"db_path" env:"OSPREY_DB_PATH" env-default:"data/osprey.db"`
	ListenAddr  string          `yaml:"listen_addr" env:"OSPREY_LISTEN_ADDR" env-default:"0.0.0.0:8091"`
	IngestToken string          `yaml:"ingest_token" env:"OSPREY_INGEST_TOKEN"`
	Timezone    string          `yaml:"timezone" env:"OSPREY_TIMEZONE" env-default:"America/New_York"`
	Ingest      IngestConfig    `yaml:"ingest"`
	Units       UnitsConfig     `yaml:"units"`
	Retention   RetentionConfig `yaml:"retention"`
}

type IngestConfig struct {
	MaxConcurrent     int   `yaml:"max_concurrent" env:"OSPREY_INGEST_MAX_CONCURRENT" env-default:"8"`
	MessageTimeoutSec int   `yaml:"message_timeout_sec" env:"OSPREY_INGEST_MESSAGE_TIMEOUT" env-default:"20"`
	MaxBodyBytes      int64 `yaml:"max_body_bytes" env:"OSPREY_INGEST_MAX_BODY_BYTES" env-default:"1048576"`
}

type UnitsConfig struct {
	CacheTTLSec int `yaml:"cache_ttl_sec" env:"OSPREY_UNITS_CACHE_TTL" env-default:"300"`
}

type RetentionConfig struct {
	Enabled            bool   `yaml:"enabled" env:"OSPREY_RETENTION_ENABLED" env-default:"true"`
	RawMessageDays     int    `yaml:"raw_message_days" env:"OSPREY_RETENTION_RAW_MESSAGE_DAYS" env-default:"30"`
	PurgeSchedule      string `yaml:"purge_schedule" env:"OSPREY_RETENTION_PURGE_SCHEDULE" env-default:"@hourly"`
	CachePruneSchedule string `yaml:"cache_prune_schedule" env:"OSPREY_RETENTION_CACHE_PRUNE_SCHEDULE" env-default:"@every 5m"`
}

// Location resolves the configured CAD time zone. Status timestamps on the
// wire are time-of-day only and are interpreted in this zone.
func (c *AppConfig) Location() (*time.Location, error) {
	if c == nil || c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *IngestConfig) MessageTimeout() time.Duration {
	if c == nil || c.MessageTimeoutSec <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.MessageTimeoutSec) * time.Second
}

func (c *UnitsConfig) CacheTTL() time.Duration {
	if c == nil || c.CacheTTLSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CacheTTLSec) * time.Second
}
