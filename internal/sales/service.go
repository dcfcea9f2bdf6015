package sales

import (
	"context"
	"fmt"
	"log"

	"github.com/stocksentry/backend/internal/catalog"
)

// StockAdjuster applies a stock delta. Satisfied by catalog.Service, which
// emits low-stock alerts as a side effect of decrements.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, productID string, delta int) (*catalog.Product, error)
}

// SaleWriter is the persistence surface the service needs. Satisfied by
// SaleStore.
type SaleWriter interface {
	Insert(ctx context.Context, sale *Sale) error
	Complete(ctx context.Context, id string) (*Sale, error)
	Cancel(ctx context.Context, id string) (*Sale, error)
}

// Service coordinates sale creation with stock movements. Stock is
// reserved at creation time so a low-stock condition surfaces as soon as
// the order exists, not when it completes.
type Service struct {
	stock StockAdjuster
	sales SaleWriter
}

func NewService(sales SaleWriter, stock StockAdjuster) *Service {
	return &Service{stock: stock, sales: sales}
}

// CreateSale decrements stock for every line item and persists the sale in
// CREATED state. If any decrement or the insert fails, quantities already
// taken are returned to stock before the error is reported.
func (s *Service) CreateSale(ctx context.Context, sale *Sale) error {
	var adjusted []SaleItem
	for _, item := range sale.Items {
		if item.Quantity <= 0 {
			s.restock(ctx, adjusted)
			return fmt.Errorf("sale item for product %s: quantity must be positive", item.ProductID)
		}
		if _, err := s.stock.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			s.restock(ctx, adjusted)
			return fmt.Errorf("reserve stock for product %s: %w", item.ProductID, err)
		}
		adjusted = append(adjusted, item)
	}

	if err := s.sales.Insert(ctx, sale); err != nil {
		s.restock(ctx, adjusted)
		return err
	}
	return nil
}

// CompleteSale marks a CREATED sale as COMPLETED, adding it to the demand
// history consulted by reorder suggestions.
func (s *Service) CompleteSale(ctx context.Context, id string) (*Sale, error) {
	return s.sales.Complete(ctx, id)
}

// CancelSale cancels a CREATED sale and returns its items to stock.
func (s *Service) CancelSale(ctx context.Context, id string) (*Sale, error) {
	sale, err := s.sales.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	s.restock(ctx, sale.Items)
	return sale, nil
}

func (s *Service) restock(ctx context.Context, items []SaleItem) {
	for _, item := range items {
		if _, err := s.stock.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			log.Printf("sales: restock of %d x %s failed: %v", item.Quantity, item.ProductID, err)
		}
	}
}
