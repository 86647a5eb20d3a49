package usecase

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/horecawatch/engine/internal/domain"
)

// Match reasons recorded on results.
const (
	ReasonManualMapping = "manual_mapping"
	ReasonExactName     = "exact_name"
	ReasonFuzzyMatch    = "fuzzy_match"
	ReasonNoMatch       = "no_match"
)

// MappingSource resolves human-curated source-to-product assignments.
type MappingSource interface {
	Get(sourceKey string) (domain.ManualMapping, bool)
}

// Resolver matches incoming listings against a pool of known products.
// Manual mappings always win; everything else goes through the weighted
// scorer. Safe for concurrent use.
type Resolver struct {
	mappings MappingSource
	cache    domain.MatchCache
	workers  int
	log      zerolog.Logger
}

// NewResolver builds a resolver. mappings and cache may be nil; workers
// below 1 falls back to serial matching.
func NewResolver(mappings MappingSource, cache domain.MatchCache, workers int, log zerolog.Logger) *Resolver {
	if workers < 1 {
		workers = 1
	}
	return &Resolver{
		mappings: mappings,
		cache:    cache,
		workers:  workers,
		log:      log,
	}
}

// cacheKey derives a stable key from the site and normalized name.
func cacheKey(site, normalizedName string) string {
	sum := md5.Sum([]byte(site + "::" + normalizedName))
	return hex.EncodeToString(sum[:])
}

// Resolve matches one listing against the product pool.
//
// Precedence: manual mapping, cached result, exact normalized-name hit,
// weighted fuzzy scan. Only high-confidence results are cached, so later
// curation can still correct mid-band matches.
func (r *Resolver) Resolve(ctx context.Context, listing domain.Listing, pool []domain.Product) (domain.MatchResult, error) {
	if m, ok := r.manualMatch(listing); ok {
		return m, nil
	}
	if len(pool) == 0 {
		return domain.MatchResult{}, domain.ErrEmptyPool
	}

	identity := IdentityForListing(listing)
	key := cacheKey(listing.Site, identity.NormalizedName)
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, key); err == nil {
			return *cached, nil
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			r.log.Warn().Err(err).Str("key", key).Msg("match cache lookup failed")
		}
	}

	result, err := r.scanPool(ctx, identity, pool)
	if err != nil {
		return domain.MatchResult{}, err
	}

	if r.cache != nil && result.Tier == domain.TierHighConfidence {
		if err := r.cache.Set(ctx, key, result); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("match cache store failed")
		}
	}
	return result, nil
}

func (r *Resolver) manualMatch(listing domain.Listing) (domain.MatchResult, bool) {
	if r.mappings == nil {
		return domain.MatchResult{}, false
	}
	m, ok := r.mappings.Get(listing.SourceKey())
	if !ok {
		return domain.MatchResult{}, false
	}
	id := m.TargetProductID
	return domain.MatchResult{
		ProductID:  &id,
		Confidence: float64(m.Confidence),
		Tier:       domain.TierFor(float64(m.Confidence)),
		Reason:     ReasonManualMapping,
		Manual:     true,
	}, true
}

func (r *Resolver) scanPool(ctx context.Context, identity domain.ProductIdentity, pool []domain.Product) (domain.MatchResult, error) {
	var (
		best       *domain.Product
		bestScore  float64
		bestScores domain.ComponentScores
		exact      bool
	)

	for i := range pool {
		if err := ctx.Err(); err != nil {
			return domain.MatchResult{}, err
		}
		p := &pool[i]

		if p.NormalizedName != "" && p.NormalizedName == identity.NormalizedName {
			best = p
			bestScore = 100
			bestScores = domain.ComponentScores{Fuzzy: 100, Brand: 100, SKU: 100, Capacity: 100}
			exact = true
			break
		}

		score, scores := TotalScore(identity, IdentityForProduct(*p))
		if score > bestScore {
			best, bestScore, bestScores = p, score, scores
		}
	}

	result := domain.MatchResult{
		Confidence: bestScore,
		Tier:       domain.TierFor(bestScore),
		Scores:     bestScores,
	}
	switch {
	case best == nil || result.Tier == domain.TierUnmatched:
		result.Reason = ReasonNoMatch
	case exact:
		result.ProductID = &best.ID
		result.Reason = ReasonExactName
	default:
		result.ProductID = &best.ID
		result.Reason = ReasonFuzzyMatch
	}
	return result, nil
}

// MatchAll resolves a batch of listings concurrently and partitions them by
// tier. Output ordering follows input ordering regardless of worker count.
func (r *Resolver) MatchAll(ctx context.Context, listings []domain.Listing, pool []domain.Product) (domain.BatchResult, error) {
	results := make([]domain.MatchResult, len(listings))
	errs := make([]error, len(listings))

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = r.Resolve(ctx, listings[i], pool)
			}
		}()
	}
	for i := range listings {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var batch domain.BatchResult
	for i, listing := range listings {
		if errs[i] != nil {
			if errors.Is(errs[i], domain.ErrEmptyPool) {
				batch.Unmatched = append(batch.Unmatched, listing)
				continue
			}
			return domain.BatchResult{}, errs[i]
		}
		resolved := domain.ResolvedListing{Listing: listing, Result: results[i]}
		switch results[i].Tier {
		case domain.TierHighConfidence, domain.TierMatch:
			batch.Matched = append(batch.Matched, resolved)
		case domain.TierLowConfidence:
			batch.LowConfidence = append(batch.LowConfidence, resolved)
		default:
			batch.Unmatched = append(batch.Unmatched, listing)
		}
	}
	return batch, nil
}

// BestMatches scores a listing against every pool product and returns the
// top n candidates in descending score order, for review tooling.
func (r *Resolver) BestMatches(ctx context.Context, listing domain.Listing, pool []domain.Product, n int) ([]domain.ScoredProduct, error) {
	if n <= 0 {
		return nil, nil
	}
	identity := IdentityForListing(listing)

	scored := make([]domain.ScoredProduct, 0, len(pool))
	for i := range pool {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score, scores := TotalScore(identity, IdentityForProduct(pool[i]))
		scored = append(scored, domain.ScoredProduct{Product: pool[i], Score: score, Scores: scores})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Product.ID < scored[j].Product.ID
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored, nil
}

// FindDuplicates flags listing pairs whose total score clears the given
// threshold. Each unordered pair is reported once.
func (r *Resolver) FindDuplicates(ctx context.Context, listings []domain.Listing, threshold float64) ([]domain.DuplicatePair, error) {
	identities := make([]domain.ProductIdentity, len(listings))
	for i, l := range listings {
		identities[i] = IdentityForListing(l)
	}

	var pairs []domain.DuplicatePair
	for i := 0; i < len(listings); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < len(listings); j++ {
			score, _ := TotalScore(identities[i], identities[j])
			if score >= threshold {
				pairs = append(pairs, domain.DuplicatePair{
					First:  listings[i],
					Second: listings[j],
					Score:  score,
				})
			}
		}
	}
	return pairs, nil
}
