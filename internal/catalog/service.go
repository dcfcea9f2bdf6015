package catalog

import (
	"context"
	"log"

	"github.com/stocksentry/backend/internal/alerts"
)

// AlertPublisher publishes a low-stock observation. Satisfied by
// alerts.Producer.
type AlertPublisher interface {
	Publish(obs alerts.Observation) error
}

// StockAdjuster applies a stock delta and returns the updated product.
// Satisfied by ProductStore.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, id string, delta int) (*Product, error)
}

// Service wraps stock mutations with low-stock alert emission. The alert
// is emitted explicitly after a successful write — there is no hidden
// reactive binding to the stock field.
type Service struct {
	products StockAdjuster
	alerts   AlertPublisher
}

func NewService(products StockAdjuster, publisher AlertPublisher) *Service {
	return &Service{products: products, alerts: publisher}
}

// AdjustStock applies delta to the product's stock. When the new level is
// at or below the low-stock threshold it publishes an alert observation.
// Publishing is best-effort relative to the write: a broker failure is
// logged and never rolls the mutation back.
func (s *Service) AdjustStock(ctx context.Context, productID string, delta int) (*Product, error) {
	p, err := s.products.AdjustStock(ctx, productID, delta)
	if err != nil {
		return nil, err
	}

	if p.CurrentStock <= p.LowStockThreshold && s.alerts != nil {
		obs := alerts.Observation{
			ProductID:    p.ID,
			SKU:          p.SKU,
			Name:         p.Name,
			CurrentStock: p.CurrentStock,
			Threshold:    p.LowStockThreshold,
		}
		if err := s.alerts.Publish(obs); err != nil {
			log.Printf("catalog: stock alert for %s not published: %v", p.SKU, err)
		}
	}

	return p, nil
}
