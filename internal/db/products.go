package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const productColumns = `id, user_id, product_type, content, version, is_active,
	COALESCE(model_used, ''), created_at, updated_at`

func scanProduct(row pgx.Row) (*GeneratedProduct, error) {
	var p GeneratedProduct
	var content []byte
	err := row.Scan(&p.ID, &p.UserID, &p.ProductType, &content, &p.Version, &p.IsActive,
		&p.ModelUsed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &p.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal product content: %w", err)
		}
	}
	return &p, nil
}

// CreateProduct stores a product as the next version for its (user, type) pair.
// Version and ID are assigned here; earlier versions are left untouched.
func (db *DB) CreateProduct(ctx context.Context, p *GeneratedProduct) (*GeneratedProduct, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	content, err := json.Marshal(p.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal product content: %w", err)
	}

	created, err := scanProduct(db.pool.QueryRow(ctx,
		`INSERT INTO generated_products (id, user_id, product_type, content, version, is_active, model_used)
		 VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(version), 0) + 1 FROM generated_products WHERE user_id = $2 AND product_type = $3),
			$5, $6)
		 RETURNING `+productColumns,
		p.ID, p.UserID, string(p.ProductType), content, p.IsActive, nullIfEmpty(p.ModelUsed),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return created, nil
}

// GetProductByID retrieves a product by ID. Returns nil, nil when absent.
func (db *DB) GetProductByID(ctx context.Context, id uuid.UUID) (*GeneratedProduct, error) {
	p, err := scanProduct(db.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM generated_products WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListProductsByUserID returns a user's products. An empty productType lists all types.
// Newest versions come first.
func (db *DB) ListProductsByUserID(ctx context.Context, userID uuid.UUID, productType ProductType) ([]GeneratedProduct, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+productColumns+` FROM generated_products
		 WHERE user_id = $1 AND ($2 = '' OR product_type = $2)
		 ORDER BY product_type, version DESC`, userID, string(productType))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []GeneratedProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct replaces content and active flag. Returns nil, nil when absent.
func (db *DB) UpdateProduct(ctx context.Context, p *GeneratedProduct) (*GeneratedProduct, error) {
	content, err := json.Marshal(p.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal product content: %w", err)
	}
	updated, err := scanProduct(db.pool.QueryRow(ctx,
		`UPDATE generated_products SET content = $2, is_active = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+productColumns,
		p.ID, content, p.IsActive,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return updated, nil
}

// DeleteProduct removes a product by ID
func (db *DB) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM generated_products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}
