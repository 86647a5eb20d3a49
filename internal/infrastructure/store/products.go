package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/horecawatch/engine/internal/domain"
)

// GetProduct retrieves a catalog product by id.
func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, storageErr("loading product", err)
	}
	return &product, nil
}

// ListProducts retrieves the whole catalog, the resolver's candidate pool.
func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	if err != nil {
		return nil, storageErr("listing products", err)
	}
	return products, nil
}

// FindOrCreateProduct returns the product with the given normalized name,
// creating it when absent. The no-op update makes RETURNING work on the
// conflict path as well.
func (s *Store) FindOrCreateProduct(ctx context.Context, normalizedName, brand, category string) (*domain.Product, error) {
	query := `
		INSERT INTO products (normalized_name, brand, category)
		VALUES ($1, $2, $3)
		ON CONFLICT (normalized_name)
		DO UPDATE SET normalized_name = EXCLUDED.normalized_name
		RETURNING *`

	var product domain.Product
	if err := s.db.GetContext(ctx, &product, query, normalizedName, brand, category); err != nil {
		return nil, storageErr("upserting product", err)
	}
	return &product, nil
}
