package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Suggestion lifecycle states. PENDING rows await review; CONVERTED and
// REJECTED rows are immutable history and are never deleted.
const (
	StatusPending   = "PENDING"
	StatusConverted = "CONVERTED"
	StatusRejected  = "REJECTED"
)

var (
	ErrNotFound             = errors.New("suggestion not found")
	ErrInvalidState         = errors.New("suggestion is not pending")
	ErrNoSupplierConfigured = errors.New("no supplier configured for product")
)

// Suggestion is a system-generated recommendation to reorder a product
// from a supplier.
type Suggestion struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	SupplierID   string          `json:"supplier_id"`
	SuggestedQty int             `json:"suggested_qty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Reason       string          `json:"reason"`
	Status       string          `json:"status"`
	PurchaseID   *string         `json:"purchase_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ReviewedAt   *time.Time      `json:"reviewed_at,omitempty"`
	ReviewedBy   string          `json:"reviewed_by,omitempty"`
}

// SuggestionStore provides access to the purchase_suggestions table.
type SuggestionStore struct {
	pool *pgxpool.Pool
}

func NewSuggestionStore(pool *pgxpool.Pool) *SuggestionStore {
	return &SuggestionStore{pool: pool}
}

const suggestionColumns = `id, product_id, supplier_id, suggested_qty, unit_cost, total_cost, reason, status, purchase_id, created_at, reviewed_at, reviewed_by`

func scanSuggestion(row pgx.Row) (*Suggestion, error) {
	var s Suggestion
	var reviewedBy *string
	err := row.Scan(&s.ID, &s.ProductID, &s.SupplierID, &s.SuggestedQty,
		&s.UnitCost, &s.TotalCost, &s.Reason, &s.Status, &s.PurchaseID,
		&s.CreatedAt, &s.ReviewedAt, &reviewedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if reviewedBy != nil {
		s.ReviewedBy = *reviewedBy
	}
	return &s, nil
}

// Insert stores a new PENDING suggestion and fills in the generated id and
// creation time.
func (s *SuggestionStore) Insert(ctx context.Context, sug *Suggestion) error {
	sug.Status = StatusPending
	row := s.pool.QueryRow(ctx,
		`INSERT INTO purchase_suggestions (product_id, supplier_id, suggested_qty, unit_cost, total_cost, reason, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		sug.ProductID, sug.SupplierID, sug.SuggestedQty, sug.UnitCost,
		sug.TotalCost, sug.Reason, sug.Status,
	)
	if err := row.Scan(&sug.ID, &sug.CreatedAt); err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

// GetByID returns the suggestion with the given id, or ErrNotFound.
func (s *SuggestionStore) GetByID(ctx context.Context, id string) (*Suggestion, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+suggestionColumns+` FROM purchase_suggestions WHERE id = $1`, id)
	return scanSuggestion(row)
}

// List returns suggestions ordered newest first, optionally filtered by
// status. limit <= 0 means no limit.
func (s *SuggestionStore) List(ctx context.Context, status string, limit, offset int) ([]Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM purchase_suggestions`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []Suggestion
	for rows.Next() {
		sug, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, *sug)
	}
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	return suggestions, rows.Err()
}

// HasPending reports whether a PENDING suggestion already exists for the
// product.
func (s *SuggestionStore) HasPending(ctx context.Context, productID string) (bool, error) {
	var exists bool
	row := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchase_suggestions WHERE product_id = $1 AND status = $2)`,
		productID, StatusPending)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check pending suggestion: %w", err)
	}
	return exists, nil
}

// Convert flips a PENDING suggestion to CONVERTED and stamps the reviewer.
// The status guard in the WHERE clause keeps concurrent approvals from
// both succeeding. Returns the updated row, or ErrInvalidState when the
// suggestion exists but is no longer pending.
func (s *SuggestionStore) Convert(ctx context.Context, id, reviewerID string) (*Suggestion, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE purchase_suggestions
		 SET status = $2, reviewed_at = now(), reviewed_by = $3
		 WHERE id = $1 AND status = $4
		 RETURNING `+suggestionColumns,
		id, StatusConverted, reviewerID, StatusPending)
	sug, err := scanSuggestion(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, s.transitionError(ctx, id)
		}
		return nil, err
	}
	return sug, nil
}

// Reject flips a PENDING suggestion to REJECTED and stamps the reviewer.
func (s *SuggestionStore) Reject(ctx context.Context, id, reviewerID string) (*Suggestion, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE purchase_suggestions
		 SET status = $2, reviewed_at = now(), reviewed_by = $3
		 WHERE id = $1 AND status = $4
		 RETURNING `+suggestionColumns,
		id, StatusRejected, reviewerID, StatusPending)
	sug, err := scanSuggestion(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, s.transitionError(ctx, id)
		}
		return nil, err
	}
	return sug, nil
}

// RevertToPending undoes a Convert whose follow-up purchase order failed.
func (s *SuggestionStore) RevertToPending(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE purchase_suggestions
		 SET status = $2, reviewed_at = NULL, reviewed_by = NULL
		 WHERE id = $1 AND status = $3`,
		id, StatusPending, StatusConverted)
	if err != nil {
		return fmt.Errorf("revert suggestion: %w", err)
	}
	return nil
}

// AttachPurchase records the purchase order created for a CONVERTED
// suggestion.
func (s *SuggestionStore) AttachPurchase(ctx context.Context, id, purchaseID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE purchase_suggestions SET purchase_id = $2 WHERE id = $1`,
		id, purchaseID)
	if err != nil {
		return fmt.Errorf("attach purchase to suggestion: %w", err)
	}
	return nil
}

// transitionError distinguishes "gone" from "not pending" after a guarded
// update matched no row.
func (s *SuggestionStore) transitionError(ctx context.Context, id string) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrInvalidState
}
