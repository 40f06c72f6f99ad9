// Command tilbakekreving-status prints the open or closed behandlinger of the configured store as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/j5ik2o/tilbakekreving-go/pkg/config"
	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/log"
	"github.com/j5ik2o/tilbakekreving-go/pkg/service"
)

// readOnly refuses every command; this tool only queries.
var readOnly = service.AuthorizerFunc(func(context.Context, uuid.UUID, hendelse.Actor) error {
	return errors.New("tilbakekreving-status is read-only")
})

func main() {
	var (
		configPath = flag.String("config", "", "path to config file (YAML)")
		closed     = flag.Bool("closed", false, "list closed behandlinger instead of open ones")
		sak        = flag.String("sak", "", "list the behandlinger of one sak with their kravgrunnlag")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *closed, *sak); err != nil {
		fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, closed bool, sak string) error {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return err
	}
	log.Configure(log.Config{Level: cfg.Log.Level, Service: cfg.Log.Service, Output: os.Stderr})

	svc, closeStore, err := service.NewFromConfig(ctx, cfg, readOnly)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	var result any
	switch {
	case sak != "":
		sakId, err := uuid.Parse(sak)
		if err != nil {
			return fmt.Errorf("invalid sak id %q: %w", sak, err)
		}
		result, err = svc.ListForCase(ctx, sakId)
		if err != nil {
			return err
		}
	case closed:
		result, err = svc.ListClosedCases(ctx)
	default:
		result, err = svc.ListOpenCases(ctx)
	}
	if err != nil {
		return err
	}
	return writeJSON(result)
}

func writeJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
