package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Purchase lifecycle states.
const (
	StatusCreated   = "CREATED"
	StatusReceived  = "RECEIVED"
	StatusCancelled = "CANCELLED"
)

var (
	ErrNotFound     = errors.New("purchase not found")
	ErrInvalidState = errors.New("purchase is not in a valid state for this transition")
)

// Purchase is an order placed with a supplier.
type Purchase struct {
	ID          string          `json:"id"`
	Reference   string          `json:"reference"`
	SupplierID  string          `json:"supplier_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	ReceivedAt  *time.Time      `json:"received_at,omitempty"`
	Items       []PurchaseItem  `json:"items,omitempty"`
}

// PurchaseItem is a single product line on a purchase.
type PurchaseItem struct {
	ID         string          `json:"id"`
	PurchaseID string          `json:"purchase_id"`
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// PurchaseStore provides access to the purchases and purchase_items tables.
type PurchaseStore struct {
	pool *pgxpool.Pool
}

func NewPurchaseStore(pool *pgxpool.Pool) *PurchaseStore {
	return &PurchaseStore{pool: pool}
}

// Insert stores a purchase and its items in one transaction. Line totals
// and the order total are computed from quantity and unit cost.
func (s *PurchaseStore) Insert(ctx context.Context, p *Purchase) error {
	if len(p.Items) == 0 {
		return errors.New("purchase must have at least one item")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert purchase: %w", err)
	}
	defer tx.Rollback(ctx)

	total := decimal.Zero
	for i := range p.Items {
		item := &p.Items[i]
		item.LineTotal = item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		total = total.Add(item.LineTotal)
	}
	p.Status = StatusCreated
	p.TotalAmount = total

	row := tx.QueryRow(ctx,
		`INSERT INTO purchases (reference, supplier_id, status, total_amount)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		p.Reference, p.SupplierID, p.Status, p.TotalAmount,
	)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}

	for i := range p.Items {
		item := &p.Items[i]
		item.PurchaseID = p.ID
		row := tx.QueryRow(ctx,
			`INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_cost, line_total)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			item.PurchaseID, item.ProductID, item.Quantity, item.UnitCost, item.LineTotal,
		)
		if err := row.Scan(&item.ID); err != nil {
			return fmt.Errorf("insert purchase item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID returns a purchase with its items, or ErrNotFound.
func (s *PurchaseStore) GetByID(ctx context.Context, id string) (*Purchase, error) {
	var p Purchase
	row := s.pool.QueryRow(ctx,
		`SELECT id, reference, supplier_id, status, total_amount, created_at, received_at
		 FROM purchases WHERE id = $1`, id)
	if err := row.Scan(&p.ID, &p.Reference, &p.SupplierID, &p.Status,
		&p.TotalAmount, &p.CreatedAt, &p.ReceivedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, purchase_id, product_id, quantity, unit_cost, line_total
		 FROM purchase_items WHERE purchase_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item PurchaseItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.ProductID,
			&item.Quantity, &item.UnitCost, &item.LineTotal); err != nil {
			return nil, err
		}
		p.Items = append(p.Items, item)
	}
	return &p, rows.Err()
}

// List returns purchases ordered newest first, optionally filtered by status.
func (s *PurchaseStore) List(ctx context.Context, status string) ([]Purchase, error) {
	query := `SELECT id, reference, supplier_id, status, total_amount, created_at, received_at
	          FROM purchases`
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

	var purchases []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.Reference, &p.SupplierID, &p.Status,
			&p.TotalAmount, &p.CreatedAt, &p.ReceivedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	if purchases == nil {
		purchases = []Purchase{}
	}
	return purchases, rows.Err()
}

// Receive transitions a purchase from CREATED to RECEIVED. The guard in
// the WHERE clause makes the transition safe under concurrent callers.
func (s *PurchaseStore) Receive(ctx context.Context, id string) (*Purchase, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE purchases SET status = $2, received_at = now()
		 WHERE id = $1 AND status = $3`,
		id, StatusReceived, StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("receive purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInvalidState
	}
	return s.GetByID(ctx, id)
}

// Cancel transitions a purchase from CREATED to CANCELLED.
func (s *PurchaseStore) Cancel(ctx context.Context, id string) (*Purchase, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE purchases SET status = $2 WHERE id = $1 AND status = $3`,
		id, StatusCancelled, StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("cancel purchase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInvalidState
	}
	return s.GetByID(ctx, id)
}
