package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samvad-hq/tabletki-watch/internal/domain"
)

// Fingerprint hashes the observable content of a snapshot. ObservedAt is
// excluded so repeated polls of an unchanged result collide.
func Fingerprint(snap domain.Snapshot) (string, error) {
	snap.ObservedAt = time.Time{}
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
