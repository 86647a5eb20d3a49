package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/horecawatch/engine/internal/domain"
)

// DetectorConfig carries the tunables of change detection.
type DetectorConfig struct {
	// PriceChangeThreshold is the minimum absolute change percent that
	// produces an event.
	PriceChangeThreshold float64
	// LookbackDays bounds the window used for new-product detection.
	LookbackDays int
}

// DefaultDetectorConfig returns the production defaults.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{PriceChangeThreshold: 5.0, LookbackDays: 7}
}

// ResultMemo caches expensive comparison projections for a short TTL.
// Implementations must be safe for concurrent use; nil disables memoization.
type ResultMemo interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Detector records observations, emits change events when a delta crosses
// the configured threshold, and serves the comparison projections built on
// top of observation history.
type Detector struct {
	products     domain.ProductRepository
	observations domain.ObservationRepository
	changes      domain.ChangeEventRepository
	memo         ResultMemo
	cfg          DetectorConfig
	log          zerolog.Logger
	now          func() time.Time
}

// NewDetector wires a detector. memo may be nil.
func NewDetector(
	products domain.ProductRepository,
	observations domain.ObservationRepository,
	changes domain.ChangeEventRepository,
	memo ResultMemo,
	cfg DetectorConfig,
	log zerolog.Logger,
) *Detector {
	if cfg.PriceChangeThreshold <= 0 {
		cfg.PriceChangeThreshold = 5.0
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 7
	}
	return &Detector{
		products:     products,
		observations: observations,
		changes:      changes,
		memo:         memo,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
	}
}

// PriceChangePercent returns the relative change from old to new, rounded
// to two decimal places. The bool is false when old is zero or negative,
// since no meaningful percentage exists.
func PriceChangePercent(oldPrice, newPrice decimal.Decimal) (decimal.Decimal, bool) {
	if oldPrice.Sign() <= 0 {
		return decimal.Zero, false
	}
	pct := newPrice.Sub(oldPrice).Div(oldPrice).Mul(decimal.NewFromInt(100))
	return pct.Round(2), true
}

// AlertLevelFor maps a change percent onto a severity band. Decreases are
// what the business watches for, so they escalate; increases only inform.
func AlertLevelFor(pct decimal.Decimal, threshold float64) domain.AlertLevel {
	t := decimal.NewFromFloat(threshold)
	switch {
	case pct.LessThan(decimal.NewFromInt(-10)):
		return domain.AlertCritical
	case pct.LessThan(t.Neg()):
		return domain.AlertWarning
	case pct.GreaterThan(t):
		return domain.AlertInfo
	}
	return domain.AlertNone
}

// AlertLevel classifies a change percent against the configured threshold.
func (d *Detector) AlertLevel(pct decimal.Decimal) domain.AlertLevel {
	return AlertLevelFor(pct, d.cfg.PriceChangeThreshold)
}

// Stock keyword sets checked by substring against raw site text.
var (
	stockOutKeywords = []string{"tükendi", "tukendi", "stokta yok", "yok", "out of stock", "not available", "unavailable"}
	stockLowKeywords = []string{"limited", "sınırlı", "sinirli", "son", "az kaldı", "az kaldi", "low stock"}
	stockInKeywords  = []string{"stokta", "var", "available", "in stock", "mevcut"}
)

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// ClassifyStockChange compares two raw stock strings. The bool is false only
// when the status text is unchanged; any textual difference emits an event,
// falling back to a generic status change when no transition keyword fires.
func ClassifyStockChange(previous, current string) (domain.StockChangeType, bool) {
	if previous == current {
		return domain.StatusChange, false
	}
	prev := strings.ToLower(strings.TrimSpace(previous))
	curr := strings.ToLower(strings.TrimSpace(current))
	switch {
	case containsAny(prev, stockInKeywords) && containsAny(curr, stockOutKeywords):
		return domain.StockOut, true
	case containsAny(prev, stockOutKeywords) && containsAny(curr, stockInKeywords):
		return domain.StockIn, true
	case containsAny(curr, stockLowKeywords):
		return domain.StockLow, true
	}
	return domain.StatusChange, true
}

// RecordObservation persists one resolved listing's reading and emits the
// change events it implies. Stock is compared against the latest prior
// observation, price against the latest observation before today, so a same
// day re-scrape does not self-compare. The returned events are nil when no
// change crossed a threshold.
func (d *Detector) RecordObservation(ctx context.Context, resolved domain.ResolvedListing) (*domain.PriceChangeEvent, *domain.StockChangeEvent, error) {
	if resolved.Result.ProductID == nil {
		return nil, nil, fmt.Errorf("record observation: %w", domain.ErrInvalidRequest)
	}
	productID := *resolved.Result.ProductID
	listing := resolved.Listing
	now := d.now()

	prior, err := d.observations.Latest(ctx, productID, listing.Site)
	if err != nil {
		return nil, nil, fmt.Errorf("loading latest observation: %w", err)
	}

	var stockEvent *domain.StockChangeEvent
	if prior != nil && listing.StockStatus != "" {
		if changeType, changed := ClassifyStockChange(prior.StockStatus, listing.StockStatus); changed {
			stockEvent = &domain.StockChangeEvent{
				ProductID:      productID,
				Site:           listing.Site,
				PreviousStatus: prior.StockStatus,
				NewStatus:      listing.StockStatus,
				ChangeType:     changeType,
				Message:        fmt.Sprintf("%s: %q -> %q", changeType, prior.StockStatus, listing.StockStatus),
				DetectedAt:     now,
			}
			if err := d.changes.SaveStockChange(ctx, stockEvent); err != nil {
				return nil, nil, fmt.Errorf("saving stock change: %w", err)
			}
		}
	}

	var priceEvent *domain.PriceChangeEvent
	previous, err := d.observations.LatestBefore(ctx, productID, listing.Site, startOfDay(now))
	if err != nil {
		return nil, nil, fmt.Errorf("loading prior observation: %w", err)
	}
	if previous != nil {
		if pct, ok := PriceChangePercent(previous.Price, listing.Price); ok {
			if level := AlertLevelFor(pct, d.cfg.PriceChangeThreshold); level != domain.AlertNone {
				priceEvent = &domain.PriceChangeEvent{
					ProductID:     productID,
					ProductName:   listing.RawName,
					Site:          listing.Site,
					OldPrice:      previous.Price,
					NewPrice:      listing.Price,
					ChangePercent: pct,
					DetectedAt:    now,
				}
				if err := d.changes.SavePriceChange(ctx, priceEvent); err != nil {
					return nil, nil, fmt.Errorf("saving price change: %w", err)
				}
				d.log.Info().
					Int64("product_id", productID).
					Str("site", listing.Site).
					Str("change_percent", pct.String()).
					Str("level", level.String()).
					Msg("price change detected")
			}
		}
	}

	obs := &domain.Observation{
		Site:         listing.Site,
		ProductID:    productID,
		OriginalName: listing.RawName,
		Price:        listing.Price,
		Currency:     listing.Currency,
		StockStatus:  listing.StockStatus,
		ObservedAt:   now,
	}
	if listing.URL != "" {
		url := listing.URL
		obs.URL = &url
	}
	if err := d.observations.SaveObservation(ctx, obs); err != nil {
		return nil, nil, fmt.Errorf("saving observation: %w", err)
	}
	return priceEvent, stockEvent, nil
}

// DetectNewProducts returns the listings whose URL has not been observed on
// the site within the lookback window. Listings without a URL cannot be
// tracked and are skipped.
func (d *Detector) DetectNewProducts(ctx context.Context, site string, listings []domain.Listing) ([]domain.Listing, error) {
	since := d.now().AddDate(0, 0, -d.cfg.LookbackDays)
	seen, err := d.observations.SeenURLs(ctx, site, since)
	if err != nil {
		return nil, fmt.Errorf("loading seen urls: %w", err)
	}

	var fresh []domain.Listing
	for _, l := range listings {
		if l.URL == "" {
			continue
		}
		if _, ok := seen[l.URL]; !ok {
			fresh = append(fresh, l)
		}
	}
	return fresh, nil
}

func actionFor(pct decimal.Decimal) string {
	switch {
	case pct.LessThan(decimal.NewFromInt(-10)):
		return "urgent price review"
	case pct.Sign() < 0:
		return "monitor competitor pricing"
	case pct.GreaterThan(decimal.NewFromInt(10)):
		return "margin opportunity"
	}
	return "monitor"
}

// DailySummary aggregates one calendar day of activity into reporting stats.
func (d *Detector) DailySummary(ctx context.Context, date time.Time) (*domain.DailySummaryStats, error) {
	from := startOfDay(date)
	to := from.AddDate(0, 0, 1)

	stats := &domain.DailySummaryStats{Date: from}

	var err error
	if stats.TotalProducts, err = d.observations.CountDistinctProducts(ctx, from, to); err != nil {
		return nil, fmt.Errorf("counting products: %w", err)
	}
	if stats.PriceDecreases, err = d.changes.CountPriceChanges(ctx, from, to, -1); err != nil {
		return nil, fmt.Errorf("counting decreases: %w", err)
	}
	if stats.PriceIncreases, err = d.changes.CountPriceChanges(ctx, from, to, 1); err != nil {
		return nil, fmt.Errorf("counting increases: %w", err)
	}
	stats.ProductsWithChanges = stats.PriceDecreases + stats.PriceIncreases
	if stats.StockChanges, err = d.changes.CountStockChanges(ctx, from, to); err != nil {
		return nil, fmt.Errorf("counting stock changes: %w", err)
	}
	if stats.NewProducts, err = d.observations.CountFirstSeen(ctx, from, to); err != nil {
		return nil, fmt.Errorf("counting first-seen: %w", err)
	}

	events, err := d.changes.PriceChangesBetween(ctx, from, to, 50)
	if err != nil {
		return nil, fmt.Errorf("loading price changes: %w", err)
	}
	for _, e := range events {
		stats.ActionItems = append(stats.ActionItems, domain.ActionItem{
			ProductID:     e.ProductID,
			ProductName:   e.ProductName,
			Site:          e.Site,
			OldPrice:      e.OldPrice,
			NewPrice:      e.NewPrice,
			ChangePercent: e.ChangePercent,
			Action:        actionFor(e.ChangePercent),
			AlertLevel:    AlertLevelFor(e.ChangePercent, d.cfg.PriceChangeThreshold),
			DetectedAt:    e.DetectedAt,
		})
	}
	return stats, nil
}

// PriceLeader finds the site(s) currently offering the lowest price for a
// product. Sites that never observed the product do not participate.
func (d *Detector) PriceLeader(ctx context.Context, productID int64, sites []string) (*domain.PriceLeader, error) {
	latest, err := d.observations.LatestPerSite(ctx, productID, sites)
	if err != nil {
		return nil, fmt.Errorf("loading latest per site: %w", err)
	}
	if len(latest) == 0 {
		return nil, domain.ErrProductNotFound
	}

	leader := &domain.PriceLeader{AllPrices: make(map[string]decimal.Decimal, len(latest))}
	first := true
	for site, obs := range latest {
		leader.AllPrices[site] = obs.Price
		if first || obs.Price.LessThan(leader.MinPrice) {
			leader.MinPrice = obs.Price
			first = false
		}
	}
	for site, obs := range latest {
		if obs.Price.Equal(leader.MinPrice) {
			price := obs.Price
			leader.Leaders = append(leader.Leaders, domain.SitePrice{
				Site:        site,
				Price:       &price,
				Currency:    obs.Currency,
				StockStatus: obs.StockStatus,
				URL:         obs.URL,
			})
		}
	}
	sort.Slice(leader.Leaders, func(i, j int) bool { return leader.Leaders[i].Site < leader.Leaders[j].Site })
	return leader, nil
}

// PriceComparison builds the per-product pivot of latest prices across the
// given sites. Results are memoized briefly since the projection walks the
// whole catalog.
func (d *Detector) PriceComparison(ctx context.Context, sites []string) ([]domain.PivotRow, error) {
	key := "pivot:" + strings.Join(sites, ",")
	if d.memo != nil {
		if v, ok := d.memo.Get(key); ok {
			if rows, ok := v.([]domain.PivotRow); ok {
				return rows, nil
			}
		}
	}

	products, err := d.products.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	rows := make([]domain.PivotRow, 0, len(products))
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		latest, err := d.observations.LatestPerSite(ctx, p.ID, sites)
		if err != nil {
			return nil, fmt.Errorf("loading latest per site: %w", err)
		}
		row := domain.PivotRow{
			ProductID:   p.ID,
			ProductName: p.NormalizedName,
			Brand:       p.Brand,
			Category:    p.Category,
			Sites:       make(map[string]domain.SitePrice, len(sites)),
		}
		for _, site := range sites {
			sp := domain.SitePrice{Site: site}
			if obs, ok := latest[site]; ok {
				price := obs.Price
				sp.Price = &price
				sp.Currency = obs.Currency
				sp.StockStatus = obs.StockStatus
				sp.URL = obs.URL
			}
			row.Sites[site] = sp
		}
		rows = append(rows, row)
	}

	if d.memo != nil {
		d.memo.Set(key, rows)
	}
	return rows, nil
}

// PriceTrend returns the observation series for a (product, site) over the
// trailing window, oldest first.
func (d *Detector) PriceTrend(ctx context.Context, productID int64, site string, days int) ([]domain.PricePoint, error) {
	if days <= 0 {
		days = 30
	}
	since := d.now().AddDate(0, 0, -days)
	history, err := d.observations.History(ctx, productID, site, since)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	points := make([]domain.PricePoint, 0, len(history))
	for _, obs := range history {
		points = append(points, domain.PricePoint{
			ObservedAt:  obs.ObservedAt,
			Price:       obs.Price,
			StockStatus: obs.StockStatus,
		})
	}
	return points, nil
}

// CompetitorAnalysis snapshots per-site coverage and price level, plus the
// change volume of the trailing week.
func (d *Detector) CompetitorAnalysis(ctx context.Context, sites []string) (*domain.CompetitorAnalysis, error) {
	now := d.now()
	analysis := &domain.CompetitorAnalysis{
		SiteProductCounts: make(map[string]int, len(sites)),
		SiteAveragePrices: make(map[string]decimal.Decimal, len(sites)),
		Sites:             sites,
	}
	for _, site := range sites {
		count, err := d.observations.CountProductsOnSite(ctx, site)
		if err != nil {
			return nil, fmt.Errorf("counting products on %s: %w", site, err)
		}
		analysis.SiteProductCounts[site] = count

		avg, err := d.observations.AveragePrice(ctx, site, now.AddDate(0, 0, -7))
		if err != nil {
			return nil, fmt.Errorf("averaging prices on %s: %w", site, err)
		}
		analysis.SiteAveragePrices[site] = avg
	}

	recent, err := d.changes.CountPriceChangesSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("counting recent changes: %w", err)
	}
	analysis.RecentChanges7d = recent
	return analysis, nil
}

// UnnotifiedChanges returns pending price-change events for the notifier.
func (d *Detector) UnnotifiedChanges(ctx context.Context, limit int) ([]domain.PriceChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	events, err := d.changes.UnnotifiedPriceChanges(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("loading unnotified changes: %w", err)
	}
	return events, nil
}

// MarkNotified flags the given events as delivered and returns how many rows
// actually flipped.
func (d *Detector) MarkNotified(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := d.changes.MarkNotified(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("marking notified: %w", err)
	}
	return n, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
