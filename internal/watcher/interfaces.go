package watcher

import (
	"context"

	"github.com/samvad-hq/tabletki-watch/internal/domain"
	"github.com/samvad-hq/tabletki-watch/pkg/publishers"
	"github.com/samvad-hq/tabletki-watch/pkg/queries"
	"github.com/samvad-hq/tabletki-watch/pkg/tabletki"
)

// API is the subset of *tabletki.Client the watcher drives.
type API interface {
	Identity() tabletki.DeviceProfile
	LocationByIP(ctx context.Context, p tabletki.LocateParams) (tabletki.Location, error)
	SearchHints(ctx context.Context, p tabletki.SearchParams) (tabletki.SearchHintsResult, error)
	ProductCard(ctx context.Context, p tabletki.ProductCardParams) (tabletki.ProductCard, error)
}

// Runner executes one kind of query and reduces the result to a snapshot.
type Runner interface {
	Kind() string
	Run(ctx context.Context, q queries.Query) (domain.Snapshot, error)
}

// RunnerRegistry resolves the runner for a query.
type RunnerRegistry interface {
	RunnerFor(q queries.Query) (Runner, error)
}

// EventPublisher publishes snapshot events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// StateStore is the persistence the watcher needs between polls.
type StateStore interface {
	SaveIdentity(ctx context.Context, profile tabletki.DeviceProfile) error
	SeenSnapshot(ctx context.Context, queryID, fingerprint string) (bool, error)
	MarkSnapshot(ctx context.Context, queryID, fingerprint string) error
}
