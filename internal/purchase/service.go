package purchase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocksentry/backend/internal/catalog"
)

// StockAdjuster applies a stock delta. Satisfied by catalog.Service.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, productID string, delta int) (*catalog.Product, error)
}

// PurchaseWriter is the persistence surface the service needs. Satisfied
// by PurchaseStore.
type PurchaseWriter interface {
	Insert(ctx context.Context, p *Purchase) error
	Receive(ctx context.Context, id string) (*Purchase, error)
	Cancel(ctx context.Context, id string) (*Purchase, error)
}

// Service coordinates purchase orders with stock movements.
type Service struct {
	purchases PurchaseWriter
	stock     StockAdjuster
}

func NewService(purchases PurchaseWriter, stock StockAdjuster) *Service {
	return &Service{purchases: purchases, stock: stock}
}

// Create persists a new purchase order in CREATED state.
func (s *Service) Create(ctx context.Context, p *Purchase) error {
	return s.purchases.Insert(ctx, p)
}

// CreateFromSuggestion places a single-line purchase order for an approved
// reorder suggestion and returns the new order's id.
func (s *Service) CreateFromSuggestion(ctx context.Context, supplierID, productID string, quantity int, unitCost decimal.Decimal) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("purchase quantity must be positive, got %d", quantity)
	}
	p := &Purchase{
		Reference:  fmt.Sprintf("PO-%d", time.Now().UnixNano()),
		SupplierID: supplierID,
		Items: []PurchaseItem{
			{ProductID: productID, Quantity: quantity, UnitCost: unitCost},
		},
	}
	if err := s.purchases.Insert(ctx, p); err != nil {
		return "", err
	}
	return p.ID, nil
}

// Receive marks a purchase as RECEIVED and adds every line's quantity to
// stock. A stock failure after the transition is logged; the order stays
// RECEIVED.
func (s *Service) Receive(ctx context.Context, id string) (*Purchase, error) {
	p, err := s.purchases.Receive(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, item := range p.Items {
		if _, err := s.stock.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			log.Printf("purchase: stock increase of %d x %s failed: %v", item.Quantity, item.ProductID, err)
		}
	}
	return p, nil
}

// Cancel cancels a CREATED purchase. No stock movement has happened yet.
func (s *Service) Cancel(ctx context.Context, id string) (*Purchase, error) {
	return s.purchases.Cancel(ctx, id)
}
