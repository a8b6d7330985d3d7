package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/tabletki-watch/pkg/tabletki"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix      = "tabletki-watch"
	redisConnectTimeout = 5 * time.Second
)

// redisClient is the subset of the go-redis client used by redisStore.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// redisStore implements a Store backed by Redis. Snapshot keys expire on
// their own, so no cleanup pass is needed.
type redisStore struct {
	client      redisClient
	snapshotTTL time.Duration
}

// openRedis connects to url and verifies the server answers PING.
func openRedis(ctx context.Context, url string, opts Options) (Store, error) {
	connOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(connOpts)

	if ctx == nil {
		ctx = context.Background()
	}
	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return newRedisStore(client, opts), nil
}

func newRedisStore(client redisClient, opts Options) *redisStore {
	opts = normalizeOptions(opts)
	return &redisStore{client: client, snapshotTTL: opts.SnapshotTTL}
}

func (r *redisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *redisStore) LoadIdentity(ctx context.Context) (tabletki.DeviceProfile, bool, error) {
	var profile tabletki.DeviceProfile
	raw, err := r.client.Get(ctx, identityRedisKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return profile, false, nil
	}
	if err != nil {
		return profile, false, fmt.Errorf("redis get identity: %w", err)
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		return profile, false, fmt.Errorf("decode identity: %w", err)
	}
	return profile, true, nil
}

func (r *redisStore) SaveIdentity(ctx context.Context, profile tabletki.DeviceProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := r.client.Set(ctx, identityRedisKey(), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set identity: %w", err)
	}
	return nil
}

func (r *redisStore) SeenSnapshot(ctx context.Context, queryID, fingerprint string) (bool, error) {
	stored, err := r.client.Get(ctx, snapshotRedisKey(queryID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get snapshot: %w", err)
	}
	return stored == fingerprint, nil
}

func (r *redisStore) MarkSnapshot(ctx context.Context, queryID, fingerprint string) error {
	if err := r.client.Set(ctx, snapshotRedisKey(queryID), fingerprint, r.snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

func identityRedisKey() string { return redisKeyPrefix + ":identity" }

func snapshotRedisKey(queryID string) string { return redisKeyPrefix + ":snapshot:" + queryID }
