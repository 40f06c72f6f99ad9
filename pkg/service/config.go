package service

import (
	"context"
	"fmt"

	"github.com/j5ik2o/tilbakekreving-go/pkg/config"
	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/kravgrunnlag"
	"github.com/j5ik2o/tilbakekreving-go/pkg/settlement"
	"github.com/j5ik2o/tilbakekreving-go/pkg/tilbakekreving"
)

// Converter decodes every event type the service writes.
var Converter = hendelse.CombineConverters(kravgrunnlag.Converter, tilbakekreving.Converter)

// NewFromConfig opens the configured store and settlement client and returns a service over them.
// Options given here override the ones derived from cfg. The returned close function releases the store.
func NewFromConfig(ctx context.Context, cfg config.Config, authorizer Authorizer, options ...Option) (*Service, func() error, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}
	client, err := settlement.NewClient(cfg.Settlement.BaseURL, cfg.Settlement.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("settlement.baseUrl: %w", err)
	}
	store, closeStore, err := config.OpenEventStore(ctx, cfg.Store, Converter)
	if err != nil {
		return nil, nil, fmt.Errorf("open event store: %w", err)
	}
	options = append([]Option{
		WithConflictMaxElapsed(cfg.Service.ConflictMaxElapsed),
		WithSummaryConcurrency(cfg.Service.SummaryConcurrency),
	}, options...)
	return New(store, authorizer, client, options...), closeStore, nil
}
