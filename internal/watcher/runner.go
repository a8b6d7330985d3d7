package watcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/tabletki-watch/internal/domain"
	"github.com/samvad-hq/tabletki-watch/pkg/queries"
	"github.com/samvad-hq/tabletki-watch/pkg/tabletki"
)

// DefaultSummaryLimit caps the description summary kept in card snapshots.
const DefaultSummaryLimit = 280

// runnerRegistry implements RunnerRegistry keyed by query kind.
type runnerRegistry struct {
	runners map[string]Runner
	mu      sync.RWMutex
}

// NewRunnerRegistry builds a registry from runners keyed by their Kind.
func NewRunnerRegistry(runners ...Runner) RunnerRegistry {
	reg := &runnerRegistry{runners: make(map[string]Runner)}
	for _, r := range runners {
		reg.register(r)
	}
	return reg
}

func (r *runnerRegistry) register(run Runner) {
	if run == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(run.Kind()))
	if key == "" {
		return
	}

	r.mu.Lock()
	r.runners[key] = run
	r.mu.Unlock()
}

// RunnerFor selects the runner for the query kind.
func (r *runnerRegistry) RunnerFor(q queries.Query) (Runner, error) {
	if r == nil {
		return nil, fmt.Errorf("runner registry is nil")
	}
	if strings.TrimSpace(q.ID) == "" {
		return nil, fmt.Errorf("query id is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if run, ok := r.runners[strings.ToLower(strings.TrimSpace(q.Kind))]; ok {
		return run, nil
	}
	return nil, fmt.Errorf("no runner registered for query %q (kind %q)", q.ID, q.Kind)
}

// DefaultRunnerRegistry wires the search and product card runners to api.
func DefaultRunnerRegistry(api API, summaryLimit int) RunnerRegistry {
	return NewRunnerRegistry(
		NewSearchRunner(api),
		NewProductCardRunner(api, summaryLimit),
	)
}

type searchRunner struct {
	api API
	now func() time.Time
}

// NewSearchRunner runs search queries through SearchHints.
func NewSearchRunner(api API) Runner {
	return &searchRunner{api: api, now: time.Now}
}

func (s *searchRunner) Kind() string { return domain.KindSearch }

func (s *searchRunner) Run(ctx context.Context, q queries.Query) (domain.Snapshot, error) {
	params := q.SearchParams()
	res, err := s.api.SearchHints(ctx, params)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("search %q: %w", params.Term, err)
	}

	location := params.Location
	if location == "" {
		location = s.api.Identity().LocationHeader
	}

	return domain.Snapshot{
		QueryID:    q.ID,
		QueryName:  q.Term,
		Kind:       domain.KindSearch,
		LocationID: location,
		ObservedAt: s.now().UTC(),
		Hints:      hintsFrom(res),
	}, nil
}

type productCardRunner struct {
	api          API
	summaryLimit int
	now          func() time.Time
}

// NewProductCardRunner runs product_card queries through ProductCard.
// summaryLimit <= 0 selects DefaultSummaryLimit.
func NewProductCardRunner(api API, summaryLimit int) Runner {
	if summaryLimit <= 0 {
		summaryLimit = DefaultSummaryLimit
	}
	return &productCardRunner{api: api, summaryLimit: summaryLimit, now: time.Now}
}

func (p *productCardRunner) Kind() string { return domain.KindProductCard }

func (p *productCardRunner) Run(ctx context.Context, q queries.Query) (domain.Snapshot, error) {
	params := q.ProductCardParams()
	card, err := p.api.ProductCard(ctx, params)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("product card %s/%s: %w", params.Name, params.GoodsIntCode, err)
	}

	reduced, err := cardFrom(card, p.summaryLimit)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("product card %s/%s: %w", params.Name, params.GoodsIntCode, err)
	}
	if reduced.GoodsIntCode == "" {
		reduced.GoodsIntCode = params.GoodsIntCode
	}

	return domain.Snapshot{
		QueryID:    q.ID,
		QueryName:  params.Name,
		Kind:       domain.KindProductCard,
		LocationID: p.api.Identity().LocationHeader,
		ObservedAt: p.now().UTC(),
		Card:       &reduced,
	}, nil
}

func hintsFrom(res tabletki.SearchHintsResult) []domain.Hint {
	out := make([]domain.Hint, 0, len(res.Items()))
	for _, g := range res.Group {
		for _, item := range g.SearchItems {
			out = append(out, domain.Hint{
				Group:          g.Name,
				Name:           deref(item.Name),
				Code:           deref(item.Code),
				URL:            deref(item.URL),
				CanBeDelivered: item.CanBeDelivered != nil && *item.CanBeDelivered,
			})
		}
	}
	return out
}

func cardFrom(card tabletki.ProductCard, summaryLimit int) (domain.Card, error) {
	summary, err := card.Summary(summaryLimit)
	if err != nil {
		return domain.Card{}, err
	}

	url := deref(card.CanonicalURL)
	if url == "" {
		url = deref(card.ShareURL)
	}

	return domain.Card{
		GoodsIntCode:   deref(card.GoodsIntCode),
		Name:           deref(card.GoodsName),
		PriceMin:       card.PriceMin,
		PriceMax:       card.PriceMax,
		CanBeDelivered: card.CanBeDelivered != nil && *card.CanBeDelivered,
		URL:            url,
		Summary:        summary,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
