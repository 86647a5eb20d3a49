package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation is one price/stock reading for a product on a site. The storage
// collaborator enforces one row per (site, product, calendar day) by upserting.
type Observation struct {
	ID           int64           `json:"id" db:"id"`
	Site         string          `json:"site" db:"site"`
	ProductID    int64           `json:"productId" db:"product_id"`
	OriginalName string          `json:"originalName,omitempty" db:"original_name"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Currency     string          `json:"currency" db:"currency"`
	StockStatus  string          `json:"stockStatus,omitempty" db:"stock_status"`
	URL          *string         `json:"url,omitempty" db:"url"`
	ObservedAt   time.Time       `json:"observedAt" db:"observed_at"`
}

// AlertLevel is the severity attached to a price-change event.
type AlertLevel int

const (
	AlertNone AlertLevel = iota
	AlertInfo
	AlertWarning
	AlertCritical
)

func (l AlertLevel) String() string {
	switch l {
	case AlertCritical:
		return "critical"
	case AlertWarning:
		return "warning"
	case AlertInfo:
		return "info"
	}
	return "none"
}

// PriceChangeEvent records a price delta that crossed the alert threshold.
// Created once; Notified flips false->true exactly once and never back.
type PriceChangeEvent struct {
	ID            int64           `json:"id" db:"id"`
	ProductID     int64           `json:"productId" db:"product_id"`
	ProductName   string          `json:"productName,omitempty" db:"product_name"`
	Site          string          `json:"site" db:"site"`
	OldPrice      decimal.Decimal `json:"oldPrice" db:"old_price"`
	NewPrice      decimal.Decimal `json:"newPrice" db:"new_price"`
	ChangePercent decimal.Decimal `json:"changePercent" db:"change_percent"`
	DetectedAt    time.Time       `json:"detectedAt" db:"detected_at"`
	Notified      bool            `json:"notified" db:"notified"`
}

// StockChangeType enumerates stock transition classifications.
type StockChangeType int

const (
	StockOut StockChangeType = iota
	StockIn
	StockLow
	StatusChange
)

func (t StockChangeType) String() string {
	switch t {
	case StockOut:
		return "stock_out"
	case StockIn:
		return "stock_in"
	case StockLow:
		return "stock_low"
	}
	return "status_change"
}

// StockChangeEvent records a stock status transition for a (product, site)
// pair. Created only when the status actually differs from the last known one.
type StockChangeEvent struct {
	ID             int64           `json:"id" db:"id"`
	ProductID      int64           `json:"productId" db:"product_id"`
	Site           string          `json:"site" db:"site"`
	PreviousStatus string          `json:"previousStatus" db:"previous_status"`
	NewStatus      string          `json:"newStatus" db:"new_status"`
	ChangeType     StockChangeType `json:"changeType" db:"change_type"`
	Message        string          `json:"message,omitempty" db:"-"`
	DetectedAt     time.Time       `json:"detectedAt" db:"detected_at"`
	Notified       bool            `json:"notified" db:"notified"`
}

// ActionItem is a read-only projection of a price-change event plus a
// recommendation; derived for reporting, never persisted on its own.
type ActionItem struct {
	ProductID     int64           `json:"productId"`
	ProductName   string          `json:"productName"`
	Site          string          `json:"site"`
	OldPrice      decimal.Decimal `json:"oldPrice"`
	NewPrice      decimal.Decimal `json:"newPrice"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Action        string          `json:"action"`
	AlertLevel    AlertLevel      `json:"alertLevel"`
	DetectedAt    time.Time       `json:"detectedAt"`
}

// DailySummaryStats aggregates one calendar day of observations and changes.
type DailySummaryStats struct {
	Date                time.Time    `json:"date"`
	TotalProducts       int          `json:"totalProducts"`
	ProductsWithChanges int          `json:"productsWithChanges"`
	PriceDecreases      int          `json:"priceDecreases"`
	PriceIncreases      int          `json:"priceIncreases"`
	StockChanges        int          `json:"stockChanges"`
	NewProducts         int          `json:"newProducts"`
	ActionItems         []ActionItem `json:"actionItems"`
}

// SitePrice is the latest observation of a product on one site. A nil Price
// means the site has never observed the product; callers must be able to tell
// "not tracked" from "tracked and equal".
type SitePrice struct {
	Site        string           `json:"site"`
	Price       *decimal.Decimal `json:"price"`
	Currency    string           `json:"currency,omitempty"`
	StockStatus string           `json:"stockStatus,omitempty"`
	URL         *string          `json:"url,omitempty"`
}

// PivotRow is one product's latest price per site for cross-site comparison.
type PivotRow struct {
	ProductID   int64                `json:"productId"`
	ProductName string               `json:"productName"`
	Brand       string               `json:"brand,omitempty"`
	Category    string               `json:"category,omitempty"`
	Sites       map[string]SitePrice `json:"sites"`
}

// PriceLeader identifies the site(s) currently offering the lowest price.
type PriceLeader struct {
	MinPrice  decimal.Decimal            `json:"minPrice"`
	Leaders   []SitePrice                `json:"leaders"`
	AllPrices map[string]decimal.Decimal `json:"allPrices"`
}

// PricePoint is one step of a price trend series.
type PricePoint struct {
	ObservedAt  time.Time       `json:"observedAt"`
	Price       decimal.Decimal `json:"price"`
	StockStatus string          `json:"stockStatus,omitempty"`
}

// CompetitorAnalysis is a high-level cross-site coverage snapshot used by
// operational tooling.
type CompetitorAnalysis struct {
	SiteProductCounts map[string]int             `json:"siteProductCounts"`
	SiteAveragePrices map[string]decimal.Decimal `json:"siteAveragePrices"`
	RecentChanges7d   int                        `json:"recentPriceChanges7days"`
	Sites             []string                   `json:"sitesAnalyzed"`
}
