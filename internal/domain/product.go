package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Listing is one normalized product record as delivered by a fetch
// collaborator: free of markup, price and stock already parsed.
type Listing struct {
	RawName     string          `json:"rawName" binding:"required"`
	Brand       string          `json:"brand,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency,omitempty"`
	StockStatus string          `json:"stockStatus,omitempty"`
	URL         string          `json:"url,omitempty"`
	Category    string          `json:"category,omitempty"`
	Site        string          `json:"site" binding:"required"`
	SourceID    string          `json:"sourceId,omitempty"`
}

// SourceKey returns the "<site>_<sourceId>" key used by manual mappings,
// or "" when the listing carries no source identity.
func (l Listing) SourceKey() string {
	if l.Site == "" || l.SourceID == "" {
		return ""
	}
	return fmt.Sprintf("%s_%s", l.Site, l.SourceID)
}

// Product is a catalog entry the resolver matches listings against.
type Product struct {
	ID             int64     `json:"id" db:"id"`
	NormalizedName string    `json:"normalizedName" db:"normalized_name"`
	Brand          string    `json:"brand,omitempty" db:"brand"`
	Category       string    `json:"category,omitempty" db:"category"`
	CreatedAt      time.Time `json:"createdAt,omitempty" db:"created_at"`
}

// Brand is a brand label extracted from a product name. Verified brands come
// from the curated dictionary; unverified ones are first-capitalized-token
// guesses.
type Brand struct {
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

// CapacityKind enumerates the capacity variants a product name can carry.
type CapacityKind int

const (
	CapacityBurner     CapacityKind = iota // burner/eye count: "4 gözlü"
	CapacityDimension                      // linear size: "900mm", "60cm"
	CapacityVolume                         // "50lt"
	CapacityWeight                         // "10kg"
	CapacityDimensions                     // two-dimensional: "60x40"
)

func (k CapacityKind) String() string {
	switch k {
	case CapacityBurner:
		return "burner"
	case CapacityDimension:
		return "dimension"
	case CapacityVolume:
		return "volume"
	case CapacityWeight:
		return "weight"
	case CapacityDimensions:
		return "dimensions"
	}
	return "unknown"
}

// Capacity is the extracted capacity descriptor. At most one per name;
// extraction stops at the first pattern hit in a fixed priority order.
// Width/Height are set only for CapacityDimensions.
type Capacity struct {
	Kind   CapacityKind `json:"kind"`
	Value  float64      `json:"value,omitempty"`
	Unit   string       `json:"unit,omitempty"`
	Width  float64      `json:"width,omitempty"`
	Height float64      `json:"height,omitempty"`
}

// Equal reports whether two capacities agree in kind and magnitude.
func (c Capacity) Equal(other Capacity) bool {
	if c.Kind != other.Kind {
		return false
	}
	if c.Kind == CapacityDimensions {
		return c.Width == other.Width && c.Height == other.Height
	}
	const eps = 0.1
	diff := c.Value - other.Value
	if diff < 0 {
		diff = -diff
	}
	return diff < eps
}

// ProductIdentity holds every feature derived from a raw product name.
// Immutable once computed; recomputed per call.
type ProductIdentity struct {
	RawName        string    `json:"rawName"`
	NormalizedName string    `json:"normalizedName"`
	Brand          *Brand    `json:"brand,omitempty"`
	SKU            string    `json:"sku,omitempty"`
	Capacity       *Capacity `json:"capacity,omitempty"`
	Site           string    `json:"site,omitempty"`
	SourceID       string    `json:"sourceId,omitempty"`
}
