package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/barrage-archive/barrage/lake"
)

// Config represents a barrage.yaml configuration file.
// CLI flags always override config values.
type Config struct {
	// Cookie is the platform session cookie. Usually supplied as
	// ${BARRAGE_COOKIE} and expanded at load time.
	Cookie string `yaml:"cookie"`
	// Rooms lists the room IDs to archive.
	Rooms []int64 `yaml:"rooms"`
	// InfoURL overrides the token endpoint. Empty means the default.
	InfoURL string        `yaml:"info_url"`
	Storage StorageConfig `yaml:"storage"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Feed    FeedConfig    `yaml:"feed"`
}

// StorageConfig holds the object store settings.
type StorageConfig struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

// S3 converts the storage section into lake settings.
func (s StorageConfig) S3() lake.S3Config {
	return lake.S3Config{
		Bucket:       s.Bucket,
		Prefix:       s.Prefix,
		Region:       s.Region,
		Endpoint:     s.Endpoint,
		AccessKey:    s.AccessKey,
		SecretKey:    s.SecretKey,
		UsePathStyle: s.PathStyle,
	}
}

// IngestConfig tunes the flush policy. Zero values mean the built-in
// defaults.
type IngestConfig struct {
	FlushRows     int      `yaml:"flush_rows"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// FeedConfig holds the optional live fan-out settings.
type FeedConfig struct {
	// Type selects the publisher: "redis" or empty to disable.
	Type    string   `yaml:"type"`
	URL     string   `yaml:"url"`
	Channel string   `yaml:"channel,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
	Retries *int     `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks the config for the run command.
func (c *Config) Validate() error {
	if c.Cookie == "" {
		return errors.New("config: cookie is required")
	}
	if len(c.Rooms) == 0 {
		return errors.New("config: at least one room is required")
	}
	seen := make(map[int64]struct{}, len(c.Rooms))
	for _, room := range c.Rooms {
		if room <= 0 {
			return fmt.Errorf("config: invalid room id %d", room)
		}
		if _, dup := seen[room]; dup {
			return fmt.Errorf("config: duplicate room id %d", room)
		}
		seen[room] = struct{}{}
	}
	s3cfg := c.Storage.S3()
	if err := s3cfg.Validate(); err != nil {
		return err
	}
	switch c.Feed.Type {
	case "", "redis":
	default:
		return fmt.Errorf("config: unknown feed type %q", c.Feed.Type)
	}
	if c.Feed.Type == "redis" && c.Feed.URL == "" {
		return errors.New("config: redis feed requires a url")
	}
	return nil
}
