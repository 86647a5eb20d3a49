package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/horecawatch/engine/internal/domain"
)

// obsColumns lists the observation columns mapped onto domain.Observation;
// observed_on is a storage detail and never leaves this package.
const obsColumns = "id, site, product_id, original_name, price, currency, stock_status, url, observed_at"

// SaveObservation upserts the single observation row for
// (site, product, calendar day). A re-scrape on the same day overwrites the
// earlier reading rather than adding a row.
func (s *Store) SaveObservation(ctx context.Context, obs *domain.Observation) error {
	query := `
		INSERT INTO observations
			(site, product_id, original_name, price, currency, stock_status, url, observed_at, observed_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, ($8 AT TIME ZONE 'UTC')::date)
		ON CONFLICT (site, product_id, observed_on) DO UPDATE SET
			original_name = EXCLUDED.original_name,
			price         = EXCLUDED.price,
			currency      = EXCLUDED.currency,
			stock_status  = EXCLUDED.stock_status,
			url           = EXCLUDED.url,
			observed_at   = EXCLUDED.observed_at
		RETURNING id`

	err := s.db.GetContext(ctx, &obs.ID, query,
		obs.Site, obs.ProductID, obs.OriginalName, obs.Price, obs.Currency,
		obs.StockStatus, obs.URL, obs.ObservedAt)
	if err != nil {
		return storageErr("saving observation", err)
	}
	return nil
}

// LatestBefore returns the most recent observation strictly before the given
// instant, or nil when the product has no history on the site.
func (s *Store) LatestBefore(ctx context.Context, productID int64, site string, before time.Time) (*domain.Observation, error) {
	var obs domain.Observation
	err := s.db.GetContext(ctx, &obs,
		"SELECT "+obsColumns+" FROM observations WHERE product_id = $1 AND site = $2 AND observed_at < $3 ORDER BY observed_at DESC LIMIT 1",
		productID, site, before)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("loading prior observation", err)
	}
	return &obs, nil
}

// Latest returns the most recent observation regardless of date, or nil.
func (s *Store) Latest(ctx context.Context, productID int64, site string) (*domain.Observation, error) {
	var obs domain.Observation
	err := s.db.GetContext(ctx, &obs,
		"SELECT "+obsColumns+" FROM observations WHERE product_id = $1 AND site = $2 ORDER BY observed_at DESC LIMIT 1",
		productID, site)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("loading latest observation", err)
	}
	return &obs, nil
}

// LatestPerSite returns the newest observation per requested site. Sites
// without data are absent from the map.
func (s *Store) LatestPerSite(ctx context.Context, productID int64, sites []string) (map[string]domain.Observation, error) {
	var rows []domain.Observation
	err := s.db.SelectContext(ctx, &rows,
		"SELECT DISTINCT ON (site) "+obsColumns+" FROM observations WHERE product_id = $1 AND site = ANY($2) ORDER BY site, observed_at DESC",
		productID, pq.Array(sites))
	if err != nil {
		return nil, storageErr("loading latest per site", err)
	}

	out := make(map[string]domain.Observation, len(rows))
	for _, obs := range rows {
		out[obs.Site] = obs
	}
	return out, nil
}

// SeenURLs returns the distinct URLs observed on a site since the given
// instant.
func (s *Store) SeenURLs(ctx context.Context, site string, since time.Time) (map[string]struct{}, error) {
	var urls []string
	err := s.db.SelectContext(ctx, &urls,
		"SELECT DISTINCT url FROM observations WHERE site = $1 AND observed_at >= $2 AND url IS NOT NULL",
		site, since)
	if err != nil {
		return nil, storageErr("loading seen urls", err)
	}

	out := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		out[u] = struct{}{}
	}
	return out, nil
}

// History returns observations for (product, site) since the given instant,
// oldest first.
func (s *Store) History(ctx context.Context, productID int64, site string, since time.Time) ([]domain.Observation, error) {
	var rows []domain.Observation
	err := s.db.SelectContext(ctx, &rows,
		"SELECT "+obsColumns+" FROM observations WHERE product_id = $1 AND site = $2 AND observed_at >= $3 ORDER BY observed_at ASC",
		productID, site, since)
	if err != nil {
		return nil, storageErr("loading history", err)
	}
	return rows, nil
}

// CountDistinctProducts counts the products observed inside [from, to).
func (s *Store) CountDistinctProducts(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(DISTINCT product_id) FROM observations WHERE observed_at >= $1 AND observed_at < $2",
		from, to)
	if err != nil {
		return 0, storageErr("counting products", err)
	}
	return count, nil
}

// CountFirstSeen counts products whose first-ever observation falls inside
// [from, to).
func (s *Store) CountFirstSeen(ctx context.Context, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT product_id, MIN(observed_at) AS first_seen
			FROM observations
			GROUP BY product_id
		) t WHERE first_seen >= $1 AND first_seen < $2`

	var count int
	if err := s.db.GetContext(ctx, &count, query, from, to); err != nil {
		return 0, storageErr("counting first-seen products", err)
	}
	return count, nil
}

// CountProductsOnSite counts the distinct products ever observed on a site.
func (s *Store) CountProductsOnSite(ctx context.Context, site string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(DISTINCT product_id) FROM observations WHERE site = $1", site)
	if err != nil {
		return 0, storageErr("counting products on site", err)
	}
	return count, nil
}

// AveragePrice averages a site's observed prices since the given instant.
func (s *Store) AveragePrice(ctx context.Context, site string, since time.Time) (decimal.Decimal, error) {
	var avg decimal.Decimal
	err := s.db.GetContext(ctx, &avg,
		"SELECT COALESCE(ROUND(AVG(price), 2), 0) FROM observations WHERE site = $1 AND observed_at >= $2",
		site, since)
	if err != nil {
		return decimal.Zero, storageErr("averaging prices", err)
	}
	return avg, nil
}
