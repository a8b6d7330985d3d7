package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/tabletki-watch/internal/logger"
	"github.com/samvad-hq/tabletki-watch/pkg/publishers"
	"github.com/samvad-hq/tabletki-watch/pkg/queries"
	"github.com/samvad-hq/tabletki-watch/pkg/tabletki"
)

// Service polls watched queries and publishes snapshots that changed.
type Service struct {
	api       API
	registry  RunnerRegistry
	publisher EventPublisher
	store     StateStore
	log       logger.Logger
	wait      func(ctx context.Context, d time.Duration) error
}

// NewService wires a watcher. A nil store disables deduplication and a nil
// log discards output.
func NewService(api API, reg RunnerRegistry, pub EventPublisher, store StateStore, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		api:       api,
		registry:  reg,
		publisher: pub,
		store:     store,
		log:       log,
		wait:      sleepCtx,
	}
}

// Locate resolves the session location from the caller IP and persists the
// updated identity.
func (s *Service) Locate(ctx context.Context) (tabletki.Location, error) {
	if s == nil || s.api == nil {
		return tabletki.Location{}, fmt.Errorf("watcher service is not initialized")
	}

	loc, err := s.api.LocationByIP(ctx, tabletki.LocateParams{})
	if err != nil {
		return tabletki.Location{}, fmt.Errorf("locate by ip: %w", err)
	}
	s.log.InfoObj("location resolved", "location", map[string]any{
		"id":   loc.ID,
		"name": loc.Name,
		"url":  loc.URL,
	})

	if s.store != nil {
		if err := s.store.SaveIdentity(ctx, s.api.Identity()); err != nil {
			return loc, fmt.Errorf("save identity: %w", err)
		}
	}
	return loc, nil
}

// Run executes one poll over qs. Per-query failures are logged and joined;
// the remaining queries still run.
func (s *Service) Run(ctx context.Context, qs []queries.Query) error {
	if s == nil || s.registry == nil {
		return fmt.Errorf("watcher service is not initialized")
	}
	if len(qs) == 0 {
		return fmt.Errorf("no queries configured for watching")
	}

	errs := make([]error, 0, len(qs))
	for i, q := range qs {
		if err := s.runQuery(ctx, q); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("query run failed", "query_error", map[string]any{
				"query_id": q.ID,
				"kind":     q.Kind,
				"error":    err.Error(),
			})
		}
		if i < len(qs)-1 {
			if err := s.wait(ctx, q.RequestDelay()); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Service) runQuery(ctx context.Context, q queries.Query) error {
	runner, err := s.registry.RunnerFor(q)
	if err != nil {
		return fmt.Errorf("resolve runner for query %s: %w", q.ID, err)
	}

	snap, err := runner.Run(ctx, q)
	if err != nil {
		return fmt.Errorf("run query %s: %w", q.ID, err)
	}

	fp, err := Fingerprint(snap)
	if err != nil {
		return fmt.Errorf("fingerprint query %s: %w", q.ID, err)
	}

	if s.store != nil {
		seen, err := s.store.SeenSnapshot(ctx, q.ID, fp)
		if err != nil {
			return fmt.Errorf("check snapshot for query %s: %w", q.ID, err)
		}
		if seen {
			s.log.DebugObj("snapshot unchanged", "query_result", map[string]any{
				"query_id":    q.ID,
				"fingerprint": fp,
			})
			return nil
		}
	}

	delivered := 0
	if s.publisher != nil {
		delivered, err = s.publisher.Publish(ctx, publishers.NewEvent(snap, fp))
		if err != nil && delivered == 0 {
			return fmt.Errorf("publish query %s: %w", q.ID, err)
		}
		if err != nil {
			s.log.WarnObj("snapshot partially delivered", "publish_error", map[string]any{
				"query_id":  q.ID,
				"delivered": delivered,
				"error":     err.Error(),
			})
		}
	}

	if s.store != nil {
		if err := s.store.MarkSnapshot(ctx, q.ID, fp); err != nil {
			return fmt.Errorf("mark snapshot for query %s: %w", q.ID, err)
		}
	}

	s.log.InfoObj("snapshot published", "query_result", map[string]any{
		"query_id":    q.ID,
		"kind":        snap.Kind,
		"hints":       len(snap.Hints),
		"fingerprint": fp,
		"delivered":   delivered,
	})
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
