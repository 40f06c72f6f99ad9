package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/j5ik2o/tilbakekreving-go/pkg/log"
)

const envPrefix = "TILBAKEKREVING_"

func (l *Loader) mergeEnv(cfg *Config) error {
	strs := map[string]*string{
		"LOG_LEVEL":                  &cfg.Log.Level,
		"LOG_SERVICE":                &cfg.Log.Service,
		"STORE_BACKEND":              &cfg.Store.Backend,
		"SQLITE_PATH":                &cfg.Store.Sqlite.Path,
		"DYNAMODB_REGION":            &cfg.Store.DynamoDB.Region,
		"DYNAMODB_ENDPOINT":          &cfg.Store.DynamoDB.Endpoint,
		"DYNAMODB_ACCESS_KEY_ID":     &cfg.Store.DynamoDB.AccessKeyID,
		"DYNAMODB_SECRET_ACCESS_KEY": &cfg.Store.DynamoDB.SecretAccessKey,
		"DYNAMODB_JOURNAL_TABLE":     &cfg.Store.DynamoDB.JournalTable,
		"DYNAMODB_HEAD_TABLE":        &cfg.Store.DynamoDB.HeadTable,
		"DYNAMODB_AUDIT_TABLE":       &cfg.Store.DynamoDB.AuditTable,
		"DYNAMODB_INDEX_TABLE":       &cfg.Store.DynamoDB.IndexTable,
		"SETTLEMENT_BASE_URL":        &cfg.Settlement.BaseURL,
	}
	for key, dst := range strs {
		if v, ok := l.env(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"SQLITE_BUSY_TIMEOUT":          &cfg.Store.Sqlite.BusyTimeout,
		"SETTLEMENT_TIMEOUT":           &cfg.Settlement.Timeout,
		"SERVICE_CONFLICT_MAX_ELAPSED": &cfg.Service.ConflictMaxElapsed,
	}
	for key, dst := range durations {
		if v, ok := l.env(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		"SQLITE_MAX_OPEN_CONNS":       &cfg.Store.Sqlite.MaxOpenConns,
		"SERVICE_SUMMARY_CONCURRENCY": &cfg.Service.SummaryConcurrency,
	}
	for key, dst := range ints {
		if v, ok := l.env(key); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = i
		}
	}

	if v, ok := l.env("DYNAMODB_SHARD_COUNT"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sDYNAMODB_SHARD_COUNT: %w", envPrefix, err)
		}
		cfg.Store.DynamoDB.ShardCount = n
	}
	return nil
}

// env returns a non-empty prefixed variable and logs where the value came from.
func (l *Loader) env(key string) (string, bool) {
	name := envPrefix + key
	v, ok := l.lookupEnv(name)
	if !ok || v == "" {
		return "", false
	}
	logger := log.WithComponent("config")
	if isSensitive(key) {
		logger.Debug().Str("key", name).Str("source", "environment").Bool("sensitive", true).Msg("using environment variable")
	} else {
		logger.Debug().Str("key", name).Str("value", v).Str("source", "environment").Msg("using environment variable")
	}
	return v, true
}

func isSensitive(key string) bool {
	return key == "DYNAMODB_SECRET_ACCESS_KEY" || key == "DYNAMODB_ACCESS_KEY_ID"
}
