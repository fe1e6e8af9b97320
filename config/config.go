// Package config loads engine configuration from a YAML file:
// compression thresholds, persistence backend selection, and sync
// intervals (SPEC_FULL.md §1 "Configuration"). Grounded on the
// teacher's use of plain struct-tagged config loading at its own
// storage/sync boundaries (luvjson/crdtstorage/options.go and
// edit_options.go define their option structs the same way, by plain
// Go structs with sane zero-value defaults), generalized here to load
// those defaults from a YAML file via gopkg.in/yaml.v3 rather than
// being constructed only in code.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Backend names a crdtstorage persistence adapter.
type Backend string

const (
	BackendMemory  Backend = "memory"
	BackendFile    Backend = "file"
	BackendRedis   Backend = "redis"
	BackendMongoDB Backend = "mongodb"
)

// Config is the engine's top-level configuration document.
type Config struct {
	Compression CompressionConfig `yaml:"compression"`
	Storage     StorageConfig     `yaml:"storage"`
	Sync        SyncConfig        `yaml:"sync"`
}

// CompressionConfig holds the compression settings of the configuration
// file (§4.4's type-2 chunk). change.Change.Encode takes an explicit
// compress flag and does not read these settings.
type CompressionConfig struct {
	// MinBytes is the configured smallest uncompressed op-column size
	// worth compressing. No package in this module reads it.
	MinBytes int `yaml:"min_bytes"`
}

// StorageConfig selects and configures a crdtstorage persistence
// adapter.
type StorageConfig struct {
	Backend Backend `yaml:"backend"`

	FilePath string `yaml:"file_path"`

	RedisAddr      string `yaml:"redis_addr"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`

	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`

	// SnowflakeNodeID seeds the crdtstorage id generator; must be
	// distinct across processes sharing the same backend.
	SnowflakeNodeID int64 `yaml:"snowflake_node_id"`
}

// SyncConfig tunes the crdtsync transport and peer-state store.
type SyncConfig struct {
	// PollInterval is how often a sync loop not driven by an explicit
	// peer push re-checks for local changes to send.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PeerStateTTL is how long a peer's persisted sync State survives
	// in RedisPeerStore without a refresh before it expires.
	PeerStateTTL time.Duration `yaml:"peer_state_ttl"`

	RedisAddr      string `yaml:"redis_addr"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
}

// Default returns the configuration used when no file is present: an
// in-memory store, conservative compression, and a 5-second sync poll.
func Default() Config {
	return Config{
		Compression: CompressionConfig{MinBytes: 256},
		Storage:     StorageConfig{Backend: BackendMemory},
		Sync: SyncConfig{
			PollInterval: 5 * time.Second,
			PeerStateTTL: 5 * time.Minute,
		},
	}
}

// Load reads and parses a crdtdoc.yaml-shaped file at path, starting
// from Default() so a partial file only overrides what it sets.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "config: validate %s", path)
	}
	return cfg, nil
}

// Validate rejects a configuration that names a backend without the
// fields it needs to connect to it.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
		// no fields required
	case BackendFile:
		if c.Storage.FilePath == "" {
			return errors.New("config: storage.file_path is required for the file backend")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("config: storage.redis_addr is required for the redis backend")
		}
	case BackendMongoDB:
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" || c.Storage.MongoCollection == "" {
			return errors.New("config: storage.mongo_uri, mongo_database and mongo_collection are required for the mongodb backend")
		}
	default:
		return errors.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}
