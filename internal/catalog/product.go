package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the referenced product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock indicates a stock decrement larger than the
	// current stock level.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is a sellable item tracked by the inventory.
type Product struct {
	ID                string          `json:"id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	CurrentStock      int             `json:"current_stock"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ProductStore provides access to the products table.
type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

const productColumns = `id, sku, name, cost_price, selling_price, current_stock, low_stock_threshold, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.CostPrice, &p.SellingPrice,
		&p.CurrentStock, &p.LowStockThreshold, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Insert stores a new product and fills in the generated id and timestamps.
func (s *ProductStore) Insert(ctx context.Context, p *Product) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO products (sku, name, cost_price, selling_price, current_stock, low_stock_threshold, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		p.SKU, p.Name, p.CostPrice, p.SellingPrice, p.CurrentStock, p.LowStockThreshold, p.IsActive,
	)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID returns the product with the given id, or ErrNotFound.
func (s *ProductStore) GetByID(ctx context.Context, id string) (*Product, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// List returns all active products ordered by name.
func (s *ProductStore) List(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if products == nil {
		products = []Product{}
	}
	return products, rows.Err()
}

// AdjustStock applies delta (positive or negative) to the product's stock
// level and returns the updated product. A decrement below zero fails with
// ErrInsufficientStock and leaves the row untouched.
func (s *ProductStore) AdjustStock(ctx context.Context, id string, delta int) (*Product, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE products
		 SET current_stock = current_stock + $2, updated_at = now()
		 WHERE id = $1 AND current_stock + $2 >= 0
		 RETURNING `+productColumns,
		id, delta)

	p, err := scanProduct(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	// Distinguish a missing product from a mutation that would go negative.
	if _, lookupErr := s.GetByID(ctx, id); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, ErrInsufficientStock
}
