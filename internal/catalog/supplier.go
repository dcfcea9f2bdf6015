package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Supplier is an external party products can be reordered from.
type Supplier struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// SupplierPreference links a product to a supplier with the commercial
// terms used by suggestion generation. Many suppliers may be linked to one
// product; at most one carries the preferred flag.
type SupplierPreference struct {
	ProductID       string          `json:"product_id"`
	SupplierID      string          `json:"supplier_id"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	MinimumOrderQty int             `json:"minimum_order_qty"`
	LeadTimeDays    int             `json:"lead_time_days"`
	IsPreferred     bool            `json:"is_preferred"`
}

// SupplierOption is a supplier preference joined with the supplier's
// identity, as consumed by the suggestion engine.
type SupplierOption struct {
	SupplierID      string          `json:"supplier_id"`
	SupplierCode    string          `json:"supplier_code"`
	SupplierName    string          `json:"supplier_name"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	MinimumOrderQty int             `json:"minimum_order_qty"`
	LeadTimeDays    int             `json:"lead_time_days"`
	IsPreferred     bool            `json:"is_preferred"`
}

// SupplierStore provides access to suppliers and supplier preferences.
type SupplierStore struct {
	pool *pgxpool.Pool
}

func NewSupplierStore(pool *pgxpool.Pool) *SupplierStore {
	return &SupplierStore{pool: pool}
}

// Insert stores a new supplier and fills in the generated id.
func (s *SupplierStore) Insert(ctx context.Context, sup *Supplier) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO suppliers (code, name, contact_person, phone, email, address, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		sup.Code, sup.Name, sup.ContactPerson, sup.Phone, sup.Email, sup.Address, sup.IsActive,
	)
	if err := row.Scan(&sup.ID, &sup.CreatedAt); err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

// List returns all suppliers ordered by name.
func (s *SupplierStore) List(ctx context.Context) ([]Supplier, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, code, name, contact_person, phone, email, address, is_active, created_at
		 FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var sup Supplier
		if err := rows.Scan(&sup.ID, &sup.Code, &sup.Name, &sup.ContactPerson,
			&sup.Phone, &sup.Email, &sup.Address, &sup.IsActive, &sup.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	if suppliers == nil {
		suppliers = []Supplier{}
	}
	return suppliers, rows.Err()
}

// UpsertPreference creates or updates the supplier terms for a product.
// Marking a preference preferred clears the flag on the product's other
// preferences so at most one winner exists.
func (s *SupplierStore) UpsertPreference(ctx context.Context, pref *SupplierPreference) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin preference upsert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if pref.IsPreferred {
		if _, err := tx.Exec(ctx,
			`UPDATE supplier_preferences SET is_preferred = false
			 WHERE product_id = $1 AND supplier_id <> $2`,
			pref.ProductID, pref.SupplierID); err != nil {
			return fmt.Errorf("clear preferred flags: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO supplier_preferences (product_id, supplier_id, unit_cost, minimum_order_qty, lead_time_days, is_preferred)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (product_id, supplier_id)
		 DO UPDATE SET unit_cost = EXCLUDED.unit_cost,
		               minimum_order_qty = EXCLUDED.minimum_order_qty,
		               lead_time_days = EXCLUDED.lead_time_days,
		               is_preferred = EXCLUDED.is_preferred`,
		pref.ProductID, pref.SupplierID, pref.UnitCost, pref.MinimumOrderQty,
		pref.LeadTimeDays, pref.IsPreferred); err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}

	return tx.Commit(ctx)
}

// OptionsForProduct returns the suppliers linked to a product, preferred
// first, then cheapest.
func (s *SupplierStore) OptionsForProduct(ctx context.Context, productID string) ([]SupplierOption, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sp.supplier_id, su.code, su.name, sp.unit_cost, sp.minimum_order_qty, sp.lead_time_days, sp.is_preferred
		 FROM supplier_preferences sp
		 JOIN suppliers su ON su.id = sp.supplier_id
		 WHERE sp.product_id = $1 AND su.is_active
		 ORDER BY sp.is_preferred DESC, sp.unit_cost ASC`,
		productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []SupplierOption
	for rows.Next() {
		var o SupplierOption
		if err := rows.Scan(&o.SupplierID, &o.SupplierCode, &o.SupplierName,
			&o.UnitCost, &o.MinimumOrderQty, &o.LeadTimeDays, &o.IsPreferred); err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}
