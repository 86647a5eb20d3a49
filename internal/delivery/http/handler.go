package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/horecawatch/engine/internal/domain"
	"github.com/horecawatch/engine/internal/metrics"
	"github.com/horecawatch/engine/internal/usecase"
)

// MappingStore is the curation surface the API exposes.
type MappingStore interface {
	Add(m domain.ManualMapping) error
	All() []domain.ManualMapping
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	resolver *usecase.Resolver
	detector *usecase.Detector
	products domain.ProductRepository
	mappings MappingStore
	log      zerolog.Logger
}

// NewHandler creates an HTTP handler.
func NewHandler(resolver *usecase.Resolver, detector *usecase.Detector, products domain.ProductRepository, mappings MappingStore, log zerolog.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		detector: detector,
		products: products,
		mappings: mappings,
		log:      log,
	}
}

// HealthCheck returns the health status of the API.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "horecawatch-engine",
		"version": "1.0.0",
	})
}

func (h *Handler) pool(c *gin.Context) ([]domain.Product, bool) {
	pool, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("loading candidate pool")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
		return nil, false
	}
	return pool, true
}

// Resolve matches a single listing against the catalog.
func (h *Handler) Resolve(c *gin.Context) {
	var listing domain.Listing
	if err := c.ShouldBindJSON(&listing); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pool, ok := h.pool(c)
	if !ok {
		return
	}

	result, err := h.resolver.Resolve(c.Request.Context(), listing, pool)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyPool) {
			c.JSON(http.StatusOK, gin.H{"result": result, "tier": domain.TierUnmatched.String()})
			return
		}
		h.log.Error().Err(err).Str("name", listing.RawName).Msg("resolving listing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution failed"})
		return
	}

	metrics.MatchesTotal.WithLabelValues(result.Tier.String()).Inc()
	metrics.MatchConfidence.Observe(result.Confidence)
	if result.Manual {
		metrics.ManualOverridesTotal.Inc()
	}

	c.JSON(http.StatusOK, gin.H{"result": result, "tier": result.Tier.String()})
}

// ResolveBatch matches a batch of listings and partitions them by tier.
func (h *Handler) ResolveBatch(c *gin.Context) {
	var listings []domain.Listing
	if err := c.ShouldBindJSON(&listings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pool, ok := h.pool(c)
	if !ok {
		return
	}

	batch, err := h.resolver.MatchAll(c.Request.Context(), listings, pool)
	if err != nil {
		h.log.Error().Err(err).Int("listings", len(listings)).Msg("resolving batch")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution failed"})
		return
	}

	for _, r := range batch.Matched {
		metrics.MatchesTotal.WithLabelValues(r.Result.Tier.String()).Inc()
	}
	for range batch.Unmatched {
		metrics.MatchesTotal.WithLabelValues(domain.TierUnmatched.String()).Inc()
	}

	c.JSON(http.StatusOK, batch)
}

// Candidates returns the top-scoring catalog products for a listing, for
// review tooling.
func (h *Handler) Candidates(c *gin.Context) {
	var listing domain.Listing
	if err := c.ShouldBindJSON(&listing); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := intQuery(c, "limit", 5)
	pool, ok := h.pool(c)
	if !ok {
		return
	}

	scored, err := h.resolver.BestMatches(c.Request.Context(), listing, pool, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scoring failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": scored})
}

// Duplicates flags likely duplicate pairs inside one batch of listings.
func (h *Handler) Duplicates(c *gin.Context) {
	var req struct {
		Listings  []domain.Listing `json:"listings" binding:"required"`
		Threshold float64          `json:"threshold"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Threshold <= 0 {
		req.Threshold = domain.MatchThreshold
	}

	pairs, err := h.resolver.FindDuplicates(c.Request.Context(), req.Listings, req.Threshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "duplicate scan failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pairs": pairs, "count": len(pairs)})
}

// Observe resolves a listing and records the observation, emitting any change
// events the new reading implies.
func (h *Handler) Observe(c *gin.Context) {
	var listing domain.Listing
	if err := c.ShouldBindJSON(&listing); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	pool, ok := h.pool(c)
	if !ok {
		return
	}

	result, err := h.resolver.Resolve(ctx, listing, pool)
	if err != nil && !errors.Is(err, domain.ErrEmptyPool) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution failed"})
		return
	}

	// An unmatched listing becomes a new catalog product.
	if !result.Matched() {
		identity := usecase.IdentityForListing(listing)
		brand := ""
		if identity.Brand != nil && identity.Brand.Verified {
			brand = identity.Brand.Name
		}
		category := listing.Category
		if category == "" {
			category = usecase.ExtractCategory(listing.RawName)
		}
		product, err := h.products.FindOrCreateProduct(ctx, identity.NormalizedName, brand, category)
		if err != nil {
			h.log.Error().Err(err).Str("name", listing.RawName).Msg("creating product")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog unavailable"})
			return
		}
		result = domain.MatchResult{
			ProductID:  &product.ID,
			Confidence: result.Confidence,
			Tier:       result.Tier,
			Reason:     "new_product",
			Scores:     result.Scores,
		}
	}

	priceEvent, stockEvent, err := h.detector.RecordObservation(ctx, domain.ResolvedListing{Listing: listing, Result: result})
	if err != nil {
		h.log.Error().Err(err).Str("name", listing.RawName).Msg("recording observation")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "observation storage unavailable"})
		return
	}

	metrics.ObservationsSavedTotal.Inc()
	if priceEvent != nil {
		level := h.detector.AlertLevel(priceEvent.ChangePercent)
		metrics.PriceChangesTotal.WithLabelValues(level.String()).Inc()
	}
	if stockEvent != nil {
		metrics.StockChangesTotal.WithLabelValues(stockEvent.ChangeType.String()).Inc()
	}

	c.JSON(http.StatusOK, gin.H{
		"result":      result,
		"priceChange": priceEvent,
		"stockChange": stockEvent,
	})
}

// NewProducts returns the listings not seen on a site within the lookback
// window.
func (h *Handler) NewProducts(c *gin.Context) {
	site := c.Param("site")
	var listings []domain.Listing
	if err := c.ShouldBindJSON(&listings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fresh, err := h.detector.DetectNewProducts(c.Request.Context(), site, listings)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "observation storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"new": fresh, "count": len(fresh)})
}

// DailySummary aggregates one day of observations and changes.
func (h *Handler) DailySummary(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	stats, err := h.detector.DailySummary(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "observation storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PriceLeader reports the cheapest site(s) for a product.
func (h *Handler) PriceLeader(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	sites := splitSites(c.Query("sites"))
	if len(sites) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sites query parameter is required"})
		return
	}

	leader, err := h.detector.PriceLeader(c.Request.Context(), id, sites)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no observations for product"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "observation storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, leader)
}

// PriceTrend returns a product's observation series on one site.
func (h *Handler) PriceTrend(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	site := c.Query("site")
	if site == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "site query parameter is required"})
		return
	}

	points, err := h.detector.PriceTrend(c.Request.Context(), id, site, intQuery(c, "days", 30))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "observation storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

// PriceComparison returns the per-product pivot of latest prices per site.
func (h *Handler) PriceComparison(c *gin.Context) {
	sites := splitSites(c.Query("sites"))
	if len(sites) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sites query parameter is required"})
		return
	}

	rows, err := h.detector.PriceComparison(c.Request.Context(), sites)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "observation storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// CompetitorAnalysis returns the cross-site coverage snapshot.
func (h *Handler) CompetitorAnalysis(c *gin.Context) {
	sites := splitSites(c.Query("sites"))
	if len(sites) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sites query parameter is required"})
		return
	}

	analysis, err := h.detector.CompetitorAnalysis(c.Request.Context(), sites)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "observation storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// UnnotifiedChanges returns pending price-change events for the notifier.
func (h *Handler) UnnotifiedChanges(c *gin.Context) {
	events, err := h.detector.UnnotifiedChanges(c.Request.Context(), intQuery(c, "limit", 50))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "observation storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// MarkNotified flags change events as delivered.
func (h *Handler) MarkNotified(c *gin.Context) {
	var req struct {
		IDs []int64 `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.detector.MarkNotified(c.Request.Context(), req.IDs)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "observation storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// AddMapping registers a manual source-to-product assignment.
func (h *Handler) AddMapping(c *gin.Context) {
	var mapping domain.ManualMapping
	if err := c.ShouldBindJSON(&mapping); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.mappings.Add(mapping); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, mapping)
}

// ListMappings returns every manual mapping, sorted by source key.
func (h *Handler) ListMappings(c *gin.Context) {
	all := h.mappings.All()
	c.JSON(http.StatusOK, gin.H{"mappings": all, "count": len(all)})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitSites(raw string) []string {
	var sites []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sites = append(sites, s)
		}
	}
	return sites
}
