package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MatchCache defines the bounded result cache consulted by the resolver.
// Implementations must be safe for concurrent use; losing entries is always
// safe since correctness never depends on a cache hit.
type MatchCache interface {
	Get(ctx context.Context, key string) (*MatchResult, error)
	Set(ctx context.Context, key string, result MatchResult) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// ProductRepository is the catalog side of the storage collaborator.
type ProductRepository interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	// FindOrCreateProduct returns the product with the given normalized name,
	// creating it when absent.
	FindOrCreateProduct(ctx context.Context, normalizedName, brand, category string) (*Product, error)
}

// ObservationRepository reads and writes price/stock observations.
// "No prior data" is a nil result, never an error; only storage failures
// surface as errors.
type ObservationRepository interface {
	// SaveObservation upserts the single row for (site, product, day).
	SaveObservation(ctx context.Context, obs *Observation) error
	// LatestBefore returns the most recent observation strictly before the
	// given instant, or nil when none exists.
	LatestBefore(ctx context.Context, productID int64, site string, before time.Time) (*Observation, error)
	// Latest returns the most recent observation regardless of date, or nil.
	Latest(ctx context.Context, productID int64, site string) (*Observation, error)
	// LatestPerSite returns the newest observation per requested site; sites
	// with no data are absent from the map.
	LatestPerSite(ctx context.Context, productID int64, sites []string) (map[string]Observation, error)
	// SeenURLs returns the distinct non-null URLs observed for a site since
	// the given instant.
	SeenURLs(ctx context.Context, site string, since time.Time) (map[string]struct{}, error)
	// History returns observations for (product, site) since the given
	// instant, oldest first.
	History(ctx context.Context, productID int64, site string, since time.Time) ([]Observation, error)
	CountDistinctProducts(ctx context.Context, from, to time.Time) (int, error)
	// CountFirstSeen counts products whose first-ever observation falls
	// inside the window.
	CountFirstSeen(ctx context.Context, from, to time.Time) (int, error)
	CountProductsOnSite(ctx context.Context, site string) (int, error)
	AveragePrice(ctx context.Context, site string, since time.Time) (decimal.Decimal, error)
}

// ChangeEventRepository persists and queries detected change events.
type ChangeEventRepository interface {
	SavePriceChange(ctx context.Context, event *PriceChangeEvent) error
	SaveStockChange(ctx context.Context, event *StockChangeEvent) error
	// PriceChangesBetween returns events in the window ordered ascending by
	// change percent (most severe decrease first), product name attached.
	PriceChangesBetween(ctx context.Context, from, to time.Time, limit int) ([]PriceChangeEvent, error)
	CountPriceChanges(ctx context.Context, from, to time.Time, direction int) (int, error)
	CountStockChanges(ctx context.Context, from, to time.Time) (int, error)
	CountPriceChangesSince(ctx context.Context, since time.Time) (int, error)
	UnnotifiedPriceChanges(ctx context.Context, limit int) ([]PriceChangeEvent, error)
	// MarkNotified flips the notified flag for the given events; already
	// notified events are left untouched.
	MarkNotified(ctx context.Context, ids []int64) (int64, error)
}
