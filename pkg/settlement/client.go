// Package settlement sends approved decisions to the settlement system over HTTP.
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/j5ik2o/tilbakekreving-go/pkg/hendelse"
	"github.com/j5ik2o/tilbakekreving-go/pkg/log"
	"github.com/j5ik2o/tilbakekreving-go/pkg/metrics"
	"github.com/j5ik2o/tilbakekreving-go/pkg/tilbakekreving"
)

const (
	vedtakPath     = "/api/v1/vedtak"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// StatusError is returned when the settlement system answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("settlement: unexpected status %d: %s", e.StatusCode, e.Body)
}

type vedtakRequest struct {
	Vedtak    tilbakekreving.Vedtak `json:"vedtak"`
	Attestant string                `json:"attestant"`
}

type kvitteringResponse struct {
	Referanse string    `json:"referanse"`
	Mottatt   time.Time `json:"mottatt"`
}

// Client posts decisions as JSON. It implements service.Settlement.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient returns a client for the settlement system at baseURL.
func NewClient(baseURL string, timeout time.Duration, options ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("settlement: invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("settlement: base url %q must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		endpoint: strings.TrimSuffix(u.String(), "/") + vedtakPath,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: log.WithComponent("settlement"),
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

// SendDecision posts vedtak and returns the settlement system's confirmation.
// The behandling id is sent as idempotency key so a repeated call is harmless upstream.
func (c *Client) SendDecision(ctx context.Context, vedtak tilbakekreving.Vedtak, approver hendelse.Actor) (tilbakekreving.Kvittering, error) {
	kvittering, err := c.send(ctx, vedtak, approver)
	logger := c.logger.With().
		Str(log.FieldBehandlingID, vedtak.BehandlingId).
		Str(log.FieldActor, approver.Ident).
		Logger()
	if err != nil {
		metrics.RecordSettlement("error")
		logger.Warn().Err(err).Msg("settlement failed")
		return tilbakekreving.Kvittering{}, err
	}
	metrics.RecordSettlement("ok")
	logger.Info().Str("referanse", kvittering.Referanse).Msg("decision settled")
	return kvittering, nil
}

func (c *Client) send(ctx context.Context, vedtak tilbakekreving.Vedtak, approver hendelse.Actor) (tilbakekreving.Kvittering, error) {
	body, err := json.Marshal(vedtakRequest{Vedtak: vedtak, Attestant: approver.Ident})
	if err != nil {
		return tilbakekreving.Kvittering{}, fmt.Errorf("settlement: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return tilbakekreving.Kvittering{}, fmt.Errorf("settlement: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", vedtak.BehandlingId)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tilbakekreving.Kvittering{}, fmt.Errorf("settlement: post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return tilbakekreving.Kvittering{}, &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	var kr kvitteringResponse
	if err := json.NewDecoder(resp.Body).Decode(&kr); err != nil {
		return tilbakekreving.Kvittering{}, fmt.Errorf("settlement: decode response: %w", err)
	}
	if kr.Referanse == "" {
		return tilbakekreving.Kvittering{}, fmt.Errorf("settlement: response without referanse")
	}
	return tilbakekreving.Kvittering{Referanse: kr.Referanse, Mottatt: kr.Mottatt}, nil
}
