// Package config loads the tilbakekreving configuration.
//
// Precedence: environment (TILBAKEKREVING_*) > YAML file > defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendSqlite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Settlement SettlementConfig `yaml:"settlement"`
	Service    ServiceConfig    `yaml:"service"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

type StoreConfig struct {
	Backend  string         `yaml:"backend"`
	Sqlite   SqliteConfig   `yaml:"sqlite"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
}

type SqliteConfig struct {
	Path         string        `yaml:"path"`
	BusyTimeout  time.Duration `yaml:"busyTimeout"`
	MaxOpenConns int           `yaml:"maxOpenConns"`
}

type DynamoDBConfig struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	JournalTable    string `yaml:"journalTable"`
	HeadTable       string `yaml:"headTable"`
	AuditTable      string `yaml:"auditTable"`
	IndexTable      string `yaml:"indexTable"`
	ShardCount      uint64 `yaml:"shardCount"`
}

type SettlementConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServiceConfig tunes the command handlers.
type ServiceConfig struct {
	// ConflictMaxElapsed bounds the retry of lenient commands after a version conflict.
	ConflictMaxElapsed time.Duration `yaml:"conflictMaxElapsed"`
	// SummaryConcurrency bounds the number of behandlinger folded in parallel by list queries.
	SummaryConcurrency int `yaml:"summaryConcurrency"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Service: "tilbakekreving"},
		Store: StoreConfig{
			Backend: BackendMemory,
			Sqlite: SqliteConfig{
				Path:         "tilbakekreving.db",
				BusyTimeout:  5 * time.Second,
				MaxOpenConns: 8,
			},
			DynamoDB: DynamoDBConfig{
				Region:       "eu-north-1",
				JournalTable: "journal",
				HeadTable:    "head",
				AuditTable:   "audit",
				IndexTable:   "aggregate_index",
				ShardCount:   64,
			},
		},
		Settlement: SettlementConfig{Timeout: 10 * time.Second},
		Service: ServiceConfig{
			ConflictMaxElapsed: 2 * time.Second,
			SummaryConcurrency: 8,
		},
	}
}

// Loader reads configuration from an optional file and the environment.
type Loader struct {
	configPath string
	lookupEnv  func(string) (string, bool)
}

func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath, lookupEnv: os.LookupEnv}
}

// Load loads configuration with precedence: ENV > File > Defaults.
func (l *Loader) Load() (Config, error) {
	cfg := Default()
	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := l.mergeEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("merge env config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the YAML file over cfg. Unknown fields are rejected.
func (l *Loader) loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}
	// #nosec G304 -- configuration file paths are provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func Validate(cfg Config) error {
	switch cfg.Store.Backend {
	case BackendMemory:
	case BackendSqlite:
		if cfg.Store.Sqlite.Path == "" {
			return errors.New("store.sqlite.path is empty")
		}
		if cfg.Store.Sqlite.MaxOpenConns <= 0 {
			return errors.New("store.sqlite.maxOpenConns must be positive")
		}
	case BackendDynamoDB:
		d := cfg.Store.DynamoDB
		if d.Region == "" {
			return errors.New("store.dynamodb.region is empty")
		}
		if d.JournalTable == "" || d.HeadTable == "" || d.AuditTable == "" || d.IndexTable == "" {
			return errors.New("store.dynamodb table names must be set")
		}
		if d.ShardCount == 0 {
			return errors.New("store.dynamodb.shardCount is zero")
		}
		if (d.AccessKeyID == "") != (d.SecretAccessKey == "") {
			return errors.New("store.dynamodb.accessKeyId and secretAccessKey must be set together")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", cfg.Store.Backend)
	}
	if cfg.Settlement.Timeout <= 0 {
		return errors.New("settlement.timeout must be positive")
	}
	if cfg.Service.SummaryConcurrency <= 0 {
		return errors.New("service.summaryConcurrency must be positive")
	}
	if cfg.Service.ConflictMaxElapsed < 0 {
		return errors.New("service.conflictMaxElapsed must not be negative")
	}
	return nil
}
