// Command tilbakekreving-migrate creates the event store schema of the configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/j5ik2o/tilbakekreving-go/pkg/config"
	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/log"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file (YAML)")
		maxWait    = flag.Duration("wait", 2*time.Minute, "how long to wait for DynamoDB tables to become active")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *maxWait); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, maxWait time.Duration) error {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return err
	}
	log.Configure(log.Config{Level: cfg.Log.Level, Service: cfg.Log.Service})
	logger := log.WithComponent("migrate")

	switch cfg.Store.Backend {
	case config.BackendMemory:
		logger.Info().Msg("memory backend has no schema")
		return nil
	case config.BackendSqlite:
		// Opening the store migrates the schema.
		es, err := hendelse.OpenEventStoreOnSqlite(cfg.Store.Sqlite.File(), hendelse.CombineConverters())
		if err != nil {
			return fmt.Errorf("migrate %s: %w", cfg.Store.Sqlite.Path, err)
		}
		defer func() { _ = es.Close() }()
		logger.Info().Str("path", cfg.Store.Sqlite.Path).Msg("sqlite schema is up to date")
		return nil
	case config.BackendDynamoDB:
		client, err := config.NewDynamoDBClient(ctx, cfg.Store.DynamoDB)
		if err != nil {
			return err
		}
		names := cfg.Store.DynamoDB.TableNames()
		if err := hendelse.CreateTables(ctx, client, names, maxWait); err != nil {
			return err
		}
		logger.Info().
			Str("journal", names.Journal).
			Str("head", names.Head).
			Str("audit", names.Audit).
			Str("index", names.Index).
			Msg("dynamodb tables are active")
		return nil
	}
	return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
