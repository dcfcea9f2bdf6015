package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Sale lifecycle states. Only COMPLETED sales count toward demand history.
const (
	StatusCreated   = "CREATED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

var (
	ErrNotFound     = errors.New("sale not found")
	ErrInvalidState = errors.New("sale is not in a valid state for this transition")
)

// Sale is a customer order with its line items.
type Sale struct {
	ID          string          `json:"id"`
	Reference   string          `json:"reference"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Items       []SaleItem      `json:"items,omitempty"`
}

// SaleItem is a single product line on a sale.
type SaleItem struct {
	ID        string          `json:"id"`
	SaleID    string          `json:"sale_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// SaleStore provides access to the sales and sale_items tables.
type SaleStore struct {
	pool *pgxpool.Pool
}

func NewSaleStore(pool *pgxpool.Pool) *SaleStore {
	return &SaleStore{pool: pool}
}

// Insert stores a sale and its items in one transaction. Line totals and
// the sale total are computed here from quantity and unit price.
func (s *SaleStore) Insert(ctx context.Context, sale *Sale) error {
	if len(sale.Items) == 0 {
		return errors.New("sale must have at least one item")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert sale: %w", err)
	}
	defer tx.Rollback(ctx)

	total := decimal.Zero
	for i := range sale.Items {
		item := &sale.Items[i]
		item.LineTotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		total = total.Add(item.LineTotal)
	}
	sale.Status = StatusCreated
	sale.TotalAmount = total

	row := tx.QueryRow(ctx,
		`INSERT INTO sales (reference, status, total_amount)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		sale.Reference, sale.Status, sale.TotalAmount,
	)
	if err := row.Scan(&sale.ID, &sale.CreatedAt); err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		row := tx.QueryRow(ctx,
			`INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, line_total)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal,
		)
		if err := row.Scan(&item.ID); err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID returns a sale with its items, or ErrNotFound.
func (s *SaleStore) GetByID(ctx context.Context, id string) (*Sale, error) {
	var sale Sale
	row := s.pool.QueryRow(ctx,
		`SELECT id, reference, status, total_amount, created_at, completed_at
		 FROM sales WHERE id = $1`, id)
	if err := row.Scan(&sale.ID, &sale.Reference, &sale.Status,
		&sale.TotalAmount, &sale.CreatedAt, &sale.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, sale_id, product_id, quantity, unit_price, line_total
		 FROM sale_items WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID,
			&item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, item)
	}
	return &sale, rows.Err()
}

// List returns sales ordered newest first, optionally filtered by status.
func (s *SaleStore) List(ctx context.Context, status string) ([]Sale, error) {
	query := `SELECT id, reference, status, total_amount, created_at, completed_at
	          FROM sales`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(&sale.ID, &sale.Reference, &sale.Status,
			&sale.TotalAmount, &sale.CreatedAt, &sale.CompletedAt); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if sales == nil {
		sales = []Sale{}
	}
	return sales, rows.Err()
}

// Complete transitions a sale from CREATED to COMPLETED. The guard in the
// WHERE clause makes the transition safe under concurrent callers.
func (s *SaleStore) Complete(ctx context.Context, id string) (*Sale, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sales SET status = $2, completed_at = now()
		 WHERE id = $1 AND status = $3`,
		id, StatusCompleted, StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("complete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInvalidState
	}
	return s.GetByID(ctx, id)
}

// Cancel transitions a sale from CREATED to CANCELLED.
func (s *SaleStore) Cancel(ctx context.Context, id string) (*Sale, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sales SET status = $2 WHERE id = $1 AND status = $3`,
		id, StatusCancelled, StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("cancel sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInvalidState
	}
	return s.GetByID(ctx, id)
}

// UnitsSoldSince sums the quantities of a product across the items of
// COMPLETED sales created after the given instant.
func (s *SaleStore) UnitsSoldSince(ctx context.Context, productID string, since time.Time) (int, error) {
	var total int
	row := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(si.quantity), 0)
		 FROM sale_items si
		 JOIN sales s ON s.id = si.sale_id
		 WHERE si.product_id = $1 AND s.status = $2 AND s.created_at >= $3`,
		productID, StatusCompleted, since)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("units sold: %w", err)
	}
	return total, nil
}
