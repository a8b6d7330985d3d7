package domain

import "time"

// Domain contains core models shared by the watcher, storage and publishers.

// Query kinds understood by the watcher.
const (
	KindSearch      = "search"
	KindProductCard = "product_card"
)

// Snapshot is the observed state of one watched query at one point in time.
type Snapshot struct {
	QueryID    string    `json:"query_id"`
	QueryName  string    `json:"query_name,omitempty"`
	Kind       string    `json:"kind"`
	LocationID string    `json:"location_id,omitempty"`
	ObservedAt time.Time `json:"observed_at"`

	Hints []Hint `json:"hints,omitempty"`
	Card  *Card  `json:"card,omitempty"`
}

// Hint is the reduced form of a search hint kept in snapshots.
type Hint struct {
	Group          string `json:"group"`
	Name           string `json:"name"`
	Code           string `json:"code,omitempty"`
	URL            string `json:"url,omitempty"`
	CanBeDelivered bool   `json:"can_be_delivered"`
}

// Card is the reduced form of a product card kept in snapshots.
type Card struct {
	GoodsIntCode   string   `json:"goods_int_code"`
	Name           string   `json:"name"`
	PriceMin       *float64 `json:"price_min,omitempty"`
	PriceMax       *float64 `json:"price_max,omitempty"`
	CanBeDelivered bool     `json:"can_be_delivered"`
	URL            string   `json:"url,omitempty"`
	Summary        string   `json:"summary,omitempty"`
}
