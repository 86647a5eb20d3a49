package store

import (
	"context"
	"time"

	"github.com/lib/pq"

	"github.com/horecawatch/engine/internal/domain"
)

// SavePriceChange inserts a price-change event and fills in its id.
func (s *Store) SavePriceChange(ctx context.Context, event *domain.PriceChangeEvent) error {
	query := `
		INSERT INTO price_changes (product_id, site, old_price, new_price, change_percent, detected_at, notified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := s.db.GetContext(ctx, &event.ID, query,
		event.ProductID, event.Site, event.OldPrice, event.NewPrice,
		event.ChangePercent, event.DetectedAt, event.Notified)
	if err != nil {
		return storageErr("saving price change", err)
	}
	return nil
}

// SaveStockChange inserts a stock-change event and fills in its id.
func (s *Store) SaveStockChange(ctx context.Context, event *domain.StockChangeEvent) error {
	query := `
		INSERT INTO stock_changes (product_id, site, previous_status, new_status, change_type, detected_at, notified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := s.db.GetContext(ctx, &event.ID, query,
		event.ProductID, event.Site, event.PreviousStatus, event.NewStatus,
		event.ChangeType.String(), event.DetectedAt, event.Notified)
	if err != nil {
		return storageErr("saving stock change", err)
	}
	return nil
}

const priceChangeColumns = `
	pc.id, pc.product_id, pc.site, pc.old_price, pc.new_price,
	pc.change_percent, pc.detected_at, pc.notified,
	p.normalized_name AS product_name`

// PriceChangesBetween returns events detected inside [from, to), ordered
// ascending by change percent so the steepest decreases come first.
func (s *Store) PriceChangesBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.PriceChangeEvent, error) {
	query := `
		SELECT ` + priceChangeColumns + `
		FROM price_changes pc
		JOIN products p ON p.id = pc.product_id
		WHERE pc.detected_at >= $1 AND pc.detected_at < $2
		ORDER BY pc.change_percent ASC
		LIMIT $3`

	var events []domain.PriceChangeEvent
	if err := s.db.SelectContext(ctx, &events, query, from, to, limit); err != nil {
		return nil, storageErr("loading price changes", err)
	}
	return events, nil
}

// CountPriceChanges counts events inside [from, to) in one direction:
// negative direction counts decreases, positive counts increases.
func (s *Store) CountPriceChanges(ctx context.Context, from, to time.Time, direction int) (int, error) {
	cmp := "> 0"
	if direction < 0 {
		cmp = "< 0"
	}

	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM price_changes WHERE detected_at >= $1 AND detected_at < $2 AND change_percent "+cmp,
		from, to)
	if err != nil {
		return 0, storageErr("counting price changes", err)
	}
	return count, nil
}

// CountStockChanges counts stock events inside [from, to).
func (s *Store) CountStockChanges(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM stock_changes WHERE detected_at >= $1 AND detected_at < $2",
		from, to)
	if err != nil {
		return 0, storageErr("counting stock changes", err)
	}
	return count, nil
}

// CountPriceChangesSince counts price events detected at or after the given
// instant.
func (s *Store) CountPriceChangesSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM price_changes WHERE detected_at >= $1", since)
	if err != nil {
		return 0, storageErr("counting recent price changes", err)
	}
	return count, nil
}

// UnnotifiedPriceChanges returns pending events, oldest first.
func (s *Store) UnnotifiedPriceChanges(ctx context.Context, limit int) ([]domain.PriceChangeEvent, error) {
	query := `
		SELECT ` + priceChangeColumns + `
		FROM price_changes pc
		JOIN products p ON p.id = pc.product_id
		WHERE pc.notified = FALSE
		ORDER BY pc.detected_at ASC
		LIMIT $1`

	var events []domain.PriceChangeEvent
	if err := s.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, storageErr("loading unnotified changes", err)
	}
	return events, nil
}

// MarkNotified flips the notified flag for the given events and reports how
// many rows changed. Already-notified events are left untouched.
func (s *Store) MarkNotified(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE price_changes SET notified = TRUE WHERE id = ANY($1) AND notified = FALSE",
		pq.Array(ids))
	if err != nil {
		return 0, storageErr("marking notified", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("marking notified", err)
	}
	return affected, nil
}
