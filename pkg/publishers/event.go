package publishers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/tabletki-watch/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	ID          string          `json:"id"`
	QueryID     string          `json:"query_id"`
	Kind        string          `json:"kind"`
	Fingerprint string          `json:"fingerprint"`
	Snapshot    domain.Snapshot `json:"snapshot"`
	PublishedAt time.Time       `json:"published_at"`
}

// NewEvent wraps a snapshot and its fingerprint in a fresh event.
func NewEvent(snap domain.Snapshot, fingerprint string) Event {
	return Event{
		ID:          uuid.NewString(),
		QueryID:     snap.QueryID,
		Kind:        snap.Kind,
		Fingerprint: fingerprint,
		Snapshot:    snap,
		PublishedAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached by queue and topic sinks.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"query_id": e.QueryID,
		"kind":     e.Kind,
	}
}
