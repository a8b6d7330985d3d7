package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/tabletki-watch/pkg/tabletki"

	bolt "go.etcd.io/bbolt"
)

func openTestBolt(t *testing.T, opts Options) (*boltStore, *time.Time) {
	t.Helper()
	raw, err := openBolt(filepath.Join(t.TempDir(), "state.db"), opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := raw.(*boltStore)
	t.Cleanup(func() { _ = store.Close() })

	clock := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return clock }
	store.nextSweep = clock.Add(opts.CleanupInterval)
	return store, &clock
}

func TestBoltStoreMarksAndExpiresSnapshots(t *testing.T) {
	ctx := context.Background()
	store, clock := openTestBolt(t, Options{SnapshotTTL: time.Minute, CleanupInterval: time.Hour})

	seen, err := store.SeenSnapshot(ctx, "q1", "fp1")
	if err != nil || seen {
		t.Fatalf("expected unseen snapshot, seen=%v err=%v", seen, err)
	}

	if err := store.MarkSnapshot(ctx, "q1", "fp1"); err != nil {
		t.Fatalf("MarkSnapshot: %v", err)
	}

	seen, err = store.SeenSnapshot(ctx, "q1", "fp1")
	if err != nil || !seen {
		t.Fatalf("expected snapshot marked as seen, got seen=%v err=%v", seen, err)
	}
	seen, err = store.SeenSnapshot(ctx, "q1", "fp2")
	if err != nil || seen {
		t.Fatalf("changed fingerprint must not be seen, got seen=%v err=%v", seen, err)
	}
	seen, err = store.SeenSnapshot(ctx, "q2", "fp1")
	if err != nil || seen {
		t.Fatalf("other query must not be seen, got seen=%v err=%v", seen, err)
	}

	*clock = clock.Add(2 * time.Minute)
	seen, err = store.SeenSnapshot(ctx, "q1", "fp1")
	if err != nil {
		t.Fatalf("SeenSnapshot after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire")
	}
}

func TestBoltStoreSweepRemovesExpired(t *testing.T) {
	ctx := context.Background()
	store, clock := openTestBolt(t, Options{SnapshotTTL: time.Minute, CleanupInterval: 10 * time.Minute})

	if err := store.MarkSnapshot(ctx, "old", "fp"); err != nil {
		t.Fatalf("MarkSnapshot: %v", err)
	}
	*clock = clock.Add(5 * time.Minute)
	if err := store.MarkSnapshot(ctx, "fresh", "fp"); err != nil {
		t.Fatalf("MarkSnapshot: %v", err)
	}

	if n := countSnapshots(t, store); n != 2 {
		t.Fatalf("sweep ran before its interval, %d entries left", n)
	}

	*clock = clock.Add(5*time.Minute + time.Second)
	if _, err := store.SeenSnapshot(ctx, "fresh", "fp"); err != nil {
		t.Fatalf("SeenSnapshot: %v", err)
	}
	if n := countSnapshots(t, store); n != 0 {
		t.Fatalf("expected sweep to drop expired entries, %d left", n)
	}
}

func TestBoltStoreHonoursCancelledContext(t *testing.T) {
	store, _ := openTestBolt(t, Options{SnapshotTTL: time.Minute, CleanupInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.MarkSnapshot(ctx, "q", "fp"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, _, err := store.LoadIdentity(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDecodeSnapshotRejectsMalformed(t *testing.T) {
	if _, _, ok := decodeSnapshot([]byte("short")); ok {
		t.Fatalf("short value must not decode")
	}
	if _, _, ok := decodeSnapshot(make([]byte, expiryBytes)); ok {
		t.Fatalf("zero expiry must not decode")
	}
	expiry := time.Unix(1_700_000_000, 0)
	got, fp, ok := decodeSnapshot(encodeSnapshot(expiry, "abc"))
	if !ok || !got.Equal(expiry) || fp != "abc" {
		t.Fatalf("round trip mismatch: %v %q %v", got, fp, ok)
	}
}

func countSnapshots(t *testing.T, store *boltStore) int {
	t.Helper()
	var n int
	err := store.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(snapshotBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		t.Fatalf("count snapshots: %v", err)
	}
	return n
}

func TestBoltStorePersistsIdentity(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store, err := NewStore(ctx, TypeBBolt, path, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if _, ok, err := store.LoadIdentity(ctx); err != nil || ok {
		t.Fatalf("expected no identity, ok=%v err=%v", ok, err)
	}

	want := tabletki.GenerateDevice(tabletki.WithLocationHeader("42"))
	if err := store.SaveIdentity(ctx, want); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = NewStore(ctx, TypeBBolt, path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	got, ok, err := store.LoadIdentity(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadIdentity: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("identity mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(ctx, "none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkSnapshot(ctx, "q", "x"); err != nil {
		t.Fatalf("noop store MarkSnapshot: %v", err)
	}
	if seen, _ := store.SeenSnapshot(ctx, "q", "x"); seen {
		t.Fatalf("noop store must never report seen")
	}
}

func TestNewStoreRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewStore(ctx, TypeBBolt, " ", Options{}); err == nil {
		t.Fatalf("expected error for empty bbolt path")
	}
	if _, err := NewStore(ctx, TypeRedis, "", Options{}); err == nil {
		t.Fatalf("expected error for empty redis url")
	}
	if _, err := NewStore(ctx, TypeRedis, "://bad", Options{}); err == nil {
		t.Fatalf("expected error for malformed redis url")
	}
	if _, err := NewStore(ctx, "etcd", "x", Options{}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
