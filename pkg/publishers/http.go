package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/tabletki-watch/pkg/httpclient"
	"go.uber.org/zap"
)

// httpPublisher posts events as JSON to a webhook.
type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  httpclient.Client
	log     *zap.Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log *zap.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	c := cfg.HTTP.normalize()
	log = orNop(log)

	opts := httpclient.DefaultOptions()
	opts.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	opts.Retries = *c.Retries
	opts.Logger = log

	return &httpPublisher{
		id:      cfg.ID,
		method:  c.Method,
		url:     c.URL,
		headers: c.Headers,
		client:  httpclient.NewRestyClient(opts),
		log:     log,
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := h.client.Do(ctx, httpclient.Request{
		Method:  h.method,
		URL:     h.url,
		Headers: h.headers,
		Body:    evt,
	})
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("http response status %d: %v", code, httpclient.DecodeBody(resp.Body()))
	}

	h.log.Debug("event delivered",
		zap.String("event_id", evt.ID),
		zap.Int("status", resp.StatusCode()),
	)
	return nil
}

// Close releases idle connections.
func (h *httpPublisher) Close() error {
	return h.client.Close()
}
