package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/kamikazebr/license-gateway/pkg/models"
)

var ErrProductNotFound = errors.New("product not found")

type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, description, version, price, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Version, product.Price, product.IsActive,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

// GetByID returns the product whether or not it has been soft deleted;
// licenses keep pointing at retired products.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.GetContext(ctx, &product, `SELECT * FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) GetByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	query := `SELECT * FROM products WHERE name = $1 AND is_active = true ORDER BY created_at LIMIT 1`
	err := r.db.GetContext(ctx, &product, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// List returns active products, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	query := `SELECT * FROM products WHERE is_active = true ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &products, query)
	return products, err
}

func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, version = $3, price = $4, updated_at = NOW()
		WHERE id = $5 AND is_active = true
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Version, product.Price, product.ID,
	).Scan(&product.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	return err
}

func (r *ProductRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM products WHERE is_active = true`)
	return count, err
}

// Revenue sums the product price of every license, grouped by active
// product. Products without licenses report zero.
func (r *ProductRepository) Revenue(ctx context.Context) ([]models.ProductRevenue, error) {
	rows := []models.ProductRevenue{}
	query := `
		SELECT p.name AS product_name, COUNT(l.id) AS license_count,
			COUNT(l.id) * p.price AS revenue
		FROM products p
		LEFT JOIN licenses l ON l.product_id = p.id
		WHERE p.is_active = true
		GROUP BY p.id, p.name, p.price
		ORDER BY revenue DESC, p.name
	`
	err := r.db.SelectContext(ctx, &rows, query)
	return rows, err
}

// RevenueTotals counts every license and sums its product price, retired
// products included.
func (r *ProductRepository) RevenueTotals(ctx context.Context) (licenses int, revenue float64, err error) {
	query := `
		SELECT COUNT(l.id), COALESCE(SUM(p.price), 0)
		FROM licenses l
		JOIN products p ON p.id = l.product_id
	`
	err = r.db.QueryRowContext(ctx, query).Scan(&licenses, &revenue)
	return licenses, revenue, err
}
