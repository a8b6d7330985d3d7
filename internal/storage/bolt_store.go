package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samvad-hq/tabletki-watch/pkg/tabletki"

	bolt "go.etcd.io/bbolt"
)

var (
	snapshotBucket = []byte("snapshots")
	identityBucket = []byte("identity")
	identityKey    = []byte("device")
)

// expiryBytes prefixes every snapshot value with a big-endian unix expiry.
const expiryBytes = 8

// boltStore keeps watcher state in a single bbolt file.
type boltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time

	sweepMu    sync.Mutex
	sweepEvery time.Duration
	nextSweep  time.Time
}

// openBolt opens (or creates) the database at path with both buckets present.
func openBolt(path string, opts Options) (Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{snapshotBucket, identityBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	b := &boltStore{
		db:         db,
		ttl:        opts.SnapshotTTL,
		now:        time.Now,
		sweepEvery: opts.CleanupInterval,
	}
	b.nextSweep = b.now().Add(b.sweepEvery)
	return b, nil
}

func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// view and update run fn against one bucket unless ctx is already done.
func (b *boltStore) view(ctx context.Context, name []byte, fn func(*bolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(func(tx *bolt.Tx) error { return fn(tx.Bucket(name)) })
}

func (b *boltStore) update(ctx context.Context, name []byte, fn func(*bolt.Bucket) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error { return fn(tx.Bucket(name)) })
}

func (b *boltStore) LoadIdentity(ctx context.Context) (tabletki.DeviceProfile, bool, error) {
	var raw []byte
	err := b.view(ctx, identityBucket, func(bk *bolt.Bucket) error {
		if v := bk.Get(identityKey); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return tabletki.DeviceProfile{}, false, err
	}

	var profile tabletki.DeviceProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return tabletki.DeviceProfile{}, false, fmt.Errorf("decode identity: %w", err)
	}
	return profile, true, nil
}

func (b *boltStore) SaveIdentity(ctx context.Context, profile tabletki.DeviceProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return b.update(ctx, identityBucket, func(bk *bolt.Bucket) error {
		return bk.Put(identityKey, raw)
	})
}

// SeenSnapshot reports whether fingerprint is the stored, unexpired value
// for queryID. Expired entries are left for the sweep.
func (b *boltStore) SeenSnapshot(ctx context.Context, queryID, fingerprint string) (bool, error) {
	now := b.now()
	if err := b.sweep(ctx, now); err != nil {
		return false, err
	}

	var seen bool
	err := b.view(ctx, snapshotBucket, func(bk *bolt.Bucket) error {
		expiry, stored, ok := decodeSnapshot(bk.Get([]byte(queryID)))
		seen = ok && expiry.After(now) && stored == fingerprint
		return nil
	})
	return seen, err
}

// MarkSnapshot stores fingerprint for queryID with a fresh TTL.
func (b *boltStore) MarkSnapshot(ctx context.Context, queryID, fingerprint string) error {
	now := b.now()
	if err := b.sweep(ctx, now); err != nil {
		return err
	}
	value := encodeSnapshot(now.Add(b.ttl), fingerprint)
	return b.update(ctx, snapshotBucket, func(bk *bolt.Bucket) error {
		return bk.Put([]byte(queryID), value)
	})
}

// sweep deletes expired and malformed snapshot entries at most once per
// cleanup interval.
func (b *boltStore) sweep(ctx context.Context, now time.Time) error {
	b.sweepMu.Lock()
	defer b.sweepMu.Unlock()
	if now.Before(b.nextSweep) {
		return nil
	}

	err := b.update(ctx, snapshotBucket, func(bk *bolt.Bucket) error {
		c := bk.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if expiry, _, ok := decodeSnapshot(v); ok && expiry.After(now) {
				continue
			}
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sweep expired snapshots: %w", err)
	}
	b.nextSweep = now.Add(b.sweepEvery)
	return nil
}

func encodeSnapshot(expiry time.Time, fingerprint string) []byte {
	buf := make([]byte, expiryBytes, expiryBytes+len(fingerprint))
	binary.BigEndian.PutUint64(buf, uint64(expiry.Unix()))
	return append(buf, fingerprint...)
}

// decodeSnapshot splits a stored value; ok is false for short or zero-expiry
// values.
func decodeSnapshot(value []byte) (expiry time.Time, fingerprint string, ok bool) {
	if len(value) < expiryBytes {
		return time.Time{}, "", false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryBytes]))
	if unix <= 0 {
		return time.Time{}, "", false
	}
	return time.Unix(unix, 0), string(value[expiryBytes:]), true
}
