// Package queries loads the watched lookups (YAML/JSON) run by the watcher.
package queries

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/tabletki-watch/internal/domain"
	"github.com/samvad-hq/tabletki-watch/internal/fileconf"
	"github.com/samvad-hq/tabletki-watch/pkg/tabletki"
)

// Query is one watched lookup.
type Query struct {
	ID      string `json:"id" yaml:"id"`
	Kind    string `json:"kind" yaml:"kind"`
	Enabled *bool  `json:"enabled" yaml:"enabled"`

	// search
	Term          string `json:"term" yaml:"term"`
	Transliterate string `json:"transliterate" yaml:"transliterate"`
	Type          string `json:"type" yaml:"type"`
	Location      string `json:"location" yaml:"location"`

	// product_card
	Name            string `json:"name" yaml:"name"`
	Code            string `json:"code" yaml:"code"`
	SkipContentPlus bool   `json:"skip_content_plus" yaml:"skip_content_plus"`

	RequestDelayMs int `json:"request_delay_ms" yaml:"request_delay_ms"`
}

type registryFile struct {
	Queries []Query `json:"queries" yaml:"queries"`
}

const defaultRequestDelayMs = 500

// Registry holds the loaded queries in file order.
type Registry struct {
	mu      sync.RWMutex
	queries []Query
	idx     map[string]Query
}

// Load reads and validates a queries file.
func Load(path string) (*Registry, error) {
	var parsed registryFile
	if err := fileconf.Load(path, "queries", &parsed); err != nil {
		return nil, err
	}
	return newRegistry(parsed.Queries)
}

// New validates qs and builds a registry from them.
func New(qs []Query) (*Registry, error) {
	return newRegistry(append([]Query(nil), qs...))
}

func newRegistry(qs []Query) (*Registry, error) {
	if len(qs) == 0 {
		return nil, errors.New("queries file contains no queries entries")
	}

	reg := &Registry{
		queries: make([]Query, len(qs)),
		idx:     make(map[string]Query, len(qs)),
	}
	for i := range qs {
		q := sanitizeQuery(qs[i])
		if err := validateQuery(q); err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		if _, exists := reg.idx[q.ID]; exists {
			return nil, fmt.Errorf("duplicate query id %q", q.ID)
		}
		reg.queries[i] = q
		reg.idx[q.ID] = q
	}
	return reg, nil
}

func sanitizeQuery(q Query) Query {
	q.ID = strings.TrimSpace(q.ID)
	q.Kind = strings.ToLower(strings.TrimSpace(q.Kind))
	q.Term = strings.TrimSpace(q.Term)
	q.Transliterate = strings.TrimSpace(q.Transliterate)
	q.Type = strings.TrimSpace(q.Type)
	q.Location = strings.TrimSpace(q.Location)
	q.Name = strings.TrimSpace(q.Name)
	q.Code = strings.TrimSpace(q.Code)

	if q.Enabled == nil {
		def := true
		q.Enabled = &def
	}
	if q.Kind == domain.KindSearch && q.Type == "" {
		q.Type = tabletki.DefaultSearchType
	}
	if q.RequestDelayMs <= 0 {
		q.RequestDelayMs = defaultRequestDelayMs
	}
	return q
}

func validateQuery(q Query) error {
	if q.ID == "" {
		return errors.New("id is required")
	}
	switch q.Kind {
	case domain.KindSearch:
		if q.Term == "" {
			return fmt.Errorf("term is required for search query %q", q.ID)
		}
	case domain.KindProductCard:
		if q.Name == "" {
			return fmt.Errorf("name is required for product_card query %q", q.ID)
		}
		if q.Code == "" {
			return fmt.Errorf("code is required for product_card query %q", q.ID)
		}
	case "":
		return fmt.Errorf("kind is required for query %q", q.ID)
	default:
		return fmt.Errorf("unknown kind %q for query %q", q.Kind, q.ID)
	}
	return nil
}

// All returns a copy of every loaded query.
func (r *Registry) All() []Query {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Query, len(r.queries))
	copy(out, r.queries)
	return out
}

// Enabled returns the queries that are switched on.
func (r *Registry) Enabled() []Query {
	all := r.All()
	out := make([]Query, 0, len(all))
	for _, q := range all {
		if q.EnabledValue() {
			out = append(out, q)
		}
	}
	return out
}

// ByID returns the query with the given id, if loaded.
func (r *Registry) ByID(id string) (Query, bool) {
	if r == nil {
		return Query{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Query{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.idx[id]
	return q, ok
}

// EnabledValue returns the enabled flag defaulting to true.
func (q Query) EnabledValue() bool {
	if q.Enabled == nil {
		return true
	}
	return *q.Enabled
}

// RequestDelay returns the pause taken after running the query.
func (q Query) RequestDelay() time.Duration {
	if q.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(q.RequestDelayMs) * time.Millisecond
}

// SearchParams maps a search query onto the client call.
func (q Query) SearchParams() tabletki.SearchParams {
	return tabletki.SearchParams{
		Term:          q.Term,
		Transliterate: tabletki.ParseTransliterate(q.Transliterate),
		Type:          q.Type,
		Location:      q.Location,
	}
}

// ProductCardParams maps a product_card query onto the client call.
func (q Query) ProductCardParams() tabletki.ProductCardParams {
	return tabletki.ProductCardParams{
		Name:            q.Name,
		GoodsIntCode:    q.Code,
		SkipContentPlus: q.SkipContentPlus,
	}
}
