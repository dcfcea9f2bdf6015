package suggest

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocksentry/backend/internal/alerts"
	"github.com/stocksentry/backend/internal/catalog"
	"github.com/stocksentry/backend/internal/live"
)

const (
	salesWindowDays = 30
	// coverageDays is the sales window plus a seven-day safety buffer.
	coverageDays = 37
)

// SupplierSource lists the suppliers linked to a product. Satisfied by
// catalog.SupplierStore.
type SupplierSource interface {
	OptionsForProduct(ctx context.Context, productID string) ([]catalog.SupplierOption, error)
}

// SalesHistory reports demand for a product. Satisfied by sales.SaleStore.
type SalesHistory interface {
	UnitsSoldSince(ctx context.Context, productID string, since time.Time) (int, error)
}

// SuggestionRepo is the persistence surface the engine needs. Satisfied by
// SuggestionStore.
type SuggestionRepo interface {
	Insert(ctx context.Context, sug *Suggestion) error
	HasPending(ctx context.Context, productID string) (bool, error)
	Convert(ctx context.Context, id, reviewerID string) (*Suggestion, error)
	Reject(ctx context.Context, id, reviewerID string) (*Suggestion, error)
	RevertToPending(ctx context.Context, id string) error
	AttachPurchase(ctx context.Context, id, purchaseID string) error
}

// PurchaseOrderCreator places a purchase order for an approved suggestion
// and returns its id. Satisfied by purchase.Service.
type PurchaseOrderCreator interface {
	CreateFromSuggestion(ctx context.Context, supplierID, productID string, quantity int, unitCost decimal.Decimal) (string, error)
}

// Broadcaster fans a message out to live observers of a topic. Satisfied
// by live.Hub.
type Broadcaster interface {
	Publish(topic string, message interface{}) error
}

// Input carries the alert facts suggestion generation works from.
type Input struct {
	ProductID    string
	ProductName  string
	SKU          string
	CurrentStock int
	Threshold    int
}

// SuggestionMessage is the envelope delivered to purchase_suggestions
// observers when a new suggestion is generated.
type SuggestionMessage struct {
	Type         string `json:"type"`
	SuggestionID string `json:"suggestion_id"`
	ProductName  string `json:"product_name"`
	SKU          string `json:"sku"`
	Supplier     string `json:"supplier"`
	SuggestedQty int    `json:"suggested_qty"`
	TotalCost    string `json:"total_cost"`
	Reason       string `json:"reason"`
}

// Engine computes reorder suggestions from supplier terms and trailing
// sales velocity.
type Engine struct {
	suppliers SupplierSource
	sales     SalesHistory
	store     SuggestionRepo
	orders    PurchaseOrderCreator
	hub       Broadcaster
}

func NewEngine(suppliers SupplierSource, sales SalesHistory, store SuggestionRepo, orders PurchaseOrderCreator, hub Broadcaster) *Engine {
	return &Engine{suppliers: suppliers, sales: sales, store: store, orders: orders, hub: hub}
}

// HandleAlert adapts Generate into a dispatcher stage.
func (e *Engine) HandleAlert(ctx context.Context, alert alerts.StockAlert) error {
	_, err := e.Generate(ctx, Input{
		ProductID:    alert.ProductID,
		ProductName:  alert.ProductName,
		SKU:          alert.SKU,
		CurrentStock: alert.CurrentStock,
		Threshold:    alert.Threshold,
	})
	return err
}

// Generate computes and persists a PENDING reorder suggestion for the
// product, then fans it out to the purchase_suggestions topic. It returns
// (nil, nil) when a pending suggestion already exists or when stock
// already covers the target. ErrNoSupplierConfigured is returned when no
// supplier is linked to the product.
func (e *Engine) Generate(ctx context.Context, in Input) (*Suggestion, error) {
	pending, err := e.store.HasPending(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	if pending {
		log.Printf("suggest: pending suggestion exists for product %s, skipping", in.ProductID)
		return nil, nil
	}

	supplier, err := e.chooseSupplier(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	totalSold, err := e.sales.UnitsSoldSince(ctx, in.ProductID,
		time.Now().UTC().AddDate(0, 0, -salesWindowDays))
	if err != nil {
		return nil, fmt.Errorf("suggest: sales history for %s: %w", in.ProductID, err)
	}

	dailyAverage := 1.0
	if totalSold > 0 {
		dailyAverage = float64(totalSold) / salesWindowDays
	}
	targetStock := int(math.Floor(dailyAverage * coverageDays))

	orderQty := targetStock - in.CurrentStock
	if orderQty < supplier.MinimumOrderQty {
		orderQty = supplier.MinimumOrderQty
	}
	if orderQty <= 0 {
		log.Printf("suggest: product %s already at target stock %d, skipping", in.ProductID, targetStock)
		return nil, nil
	}

	totalCost := supplier.UnitCost.Mul(decimal.NewFromInt(int64(orderQty))).Round(2)

	sug := &Suggestion{
		ProductID:    in.ProductID,
		SupplierID:   supplier.SupplierID,
		SuggestedQty: orderQty,
		UnitCost:     supplier.UnitCost,
		TotalCost:    totalCost,
		Reason: fmt.Sprintf(
			"Stock at %d, threshold %d. Sold %d units in the last %d days (%.2f/day). "+
				"Ordering %d from %s to cover %d days (lead time %d days, minimum order %d).",
			in.CurrentStock, in.Threshold, totalSold, salesWindowDays, dailyAverage,
			orderQty, supplier.SupplierName, coverageDays, supplier.LeadTimeDays,
			supplier.MinimumOrderQty),
	}
	if err := e.store.Insert(ctx, sug); err != nil {
		return nil, fmt.Errorf("suggest: persist suggestion for %s: %w", in.ProductID, err)
	}

	msg := SuggestionMessage{
		Type:         "purchase_suggestion",
		SuggestionID: sug.ID,
		ProductName:  in.ProductName,
		SKU:          in.SKU,
		Supplier:     supplier.SupplierName,
		SuggestedQty: sug.SuggestedQty,
		TotalCost:    sug.TotalCost.StringFixed(2),
		Reason:       sug.Reason,
	}
	if err := e.hub.Publish(live.TopicPurchaseSuggestions, msg); err != nil {
		// The suggestion is persisted; a missed broadcast is not fatal.
		log.Printf("suggest: fan-out of suggestion %s failed: %v", sug.ID, err)
	}

	return sug, nil
}

// chooseSupplier picks the preferred supplier for the product, falling
// back to any linked supplier.
func (e *Engine) chooseSupplier(ctx context.Context, productID string) (*catalog.SupplierOption, error) {
	options, err := e.suppliers.OptionsForProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("suggest: suppliers for %s: %w", productID, err)
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("suggest: product %s: %w", productID, ErrNoSupplierConfigured)
	}
	for i := range options {
		if options[i].IsPreferred {
			return &options[i], nil
		}
	}
	return &options[0], nil
}

// Approve converts a PENDING suggestion into a purchase order. The status
// transition happens first under a PENDING guard; if placing the order
// then fails, the suggestion is reverted to PENDING and the error is
// returned.
func (e *Engine) Approve(ctx context.Context, suggestionID, reviewerID string) (*Suggestion, error) {
	sug, err := e.store.Convert(ctx, suggestionID, reviewerID)
	if err != nil {
		return nil, err
	}

	purchaseID, err := e.orders.CreateFromSuggestion(ctx, sug.SupplierID, sug.ProductID, sug.SuggestedQty, sug.UnitCost)
	if err != nil {
		if revertErr := e.store.RevertToPending(ctx, suggestionID); revertErr != nil {
			log.Printf("suggest: revert of suggestion %s failed: %v", suggestionID, revertErr)
		}
		return nil, fmt.Errorf("suggest: purchase order for suggestion %s: %w", suggestionID, err)
	}

	if err := e.store.AttachPurchase(ctx, suggestionID, purchaseID); err != nil {
		log.Printf("suggest: attach purchase %s to suggestion %s failed: %v", purchaseID, suggestionID, err)
	}
	sug.PurchaseID = &purchaseID
	return sug, nil
}

// Reject marks a PENDING suggestion as REJECTED. No purchase order is
// created.
func (e *Engine) Reject(ctx context.Context, suggestionID, reviewerID string) (*Suggestion, error) {
	return e.store.Reject(ctx, suggestionID, reviewerID)
}
