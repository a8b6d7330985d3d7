// Package storage keeps watcher state across runs: the device identity and
// the last published snapshot fingerprint per query.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/tabletki-watch/pkg/tabletki"
)

// Store persists watcher state.
type Store interface {
	Close() error
	// LoadIdentity returns the saved device profile; ok is false when none exists.
	LoadIdentity(ctx context.Context) (profile tabletki.DeviceProfile, ok bool, err error)
	SaveIdentity(ctx context.Context, profile tabletki.DeviceProfile) error
	// SeenSnapshot reports whether fingerprint is the unexpired last-published
	// fingerprint of queryID.
	SeenSnapshot(ctx context.Context, queryID, fingerprint string) (bool, error)
	MarkSnapshot(ctx context.Context, queryID, fingerprint string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	SnapshotTTL     time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSnapshotTTL     = 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// Supported backend names.
const (
	TypeBBolt = "bbolt"
	TypeRedis = "redis"
)

// NewStore creates the configured storage backend. target is the database
// path for bbolt and the connection URL for redis.
func NewStore(ctx context.Context, typ, target string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case TypeBBolt:
		if strings.TrimSpace(target) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(target, opts)
	case TypeRedis:
		if strings.TrimSpace(target) == "" {
			return nil, fmt.Errorf("redis storage requires a url")
		}
		return openRedis(ctx, target, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaultSnapshotTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error { return nil }
func (noopStore) LoadIdentity(context.Context) (tabletki.DeviceProfile, bool, error) {
	return tabletki.DeviceProfile{}, false, nil
}
func (noopStore) SaveIdentity(context.Context, tabletki.DeviceProfile) error { return nil }
func (noopStore) SeenSnapshot(context.Context, string, string) (bool, error) { return false, nil }
func (noopStore) MarkSnapshot(context.Context, string, string) error         { return nil }
