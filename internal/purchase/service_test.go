package purchase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/stocksentry/backend/internal/catalog"
)

type fakePurchaseWriter struct {
	inserted   []*Purchase
	insertErr  error
	receiveErr error
	received   *Purchase
}

func (f *fakePurchaseWriter) Insert(ctx context.Context, p *Purchase) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	p.ID = "po-1"
	p.Status = StatusCreated
	f.inserted = append(f.inserted, p)
	return nil
}

func (f *fakePurchaseWriter) Receive(ctx context.Context, id string) (*Purchase, error) {
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	return f.received, nil
}

func (f *fakePurchaseWriter) Cancel(ctx context.Context, id string) (*Purchase, error) {
	return &Purchase{ID: id, Status: StatusCancelled}, nil
}

type fakeStock struct {
	deltas map[string]int
	err    error
}

func (f *fakeStock) AdjustStock(ctx context.Context, productID string, delta int) (*catalog.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.deltas == nil {
		f.deltas = map[string]int{}
	}
	f.deltas[productID] += delta
	return &catalog.Product{ID: productID}, nil
}

func TestCreateFromSuggestionBuildsSingleLineOrder(t *testing.T) {
	writer := &fakePurchaseWriter{}
	svc := NewService(writer, &fakeStock{})

	cost := decimal.RequireFromString("4.50")
	id, err := svc.CreateFromSuggestion(context.Background(), "sup-1", "prod-1", 69, cost)
	if err != nil {
		t.Fatalf("CreateFromSuggestion: %v", err)
	}
	if id != "po-1" {
		t.Fatalf("id = %q, want po-1", id)
	}
	if len(writer.inserted) != 1 {
		t.Fatalf("expected 1 order, got %d", len(writer.inserted))
	}
	p := writer.inserted[0]
	if p.SupplierID != "sup-1" {
		t.Errorf("supplier = %q", p.SupplierID)
	}
	if len(p.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(p.Items))
	}
	item := p.Items[0]
	if item.ProductID != "prod-1" || item.Quantity != 69 || !item.UnitCost.Equal(cost) {
		t.Errorf("unexpected item: %+v", item)
	}
}

func TestCreateFromSuggestionRejectsNonPositiveQuantity(t *testing.T) {
	svc := NewService(&fakePurchaseWriter{}, &fakeStock{})
	if _, err := svc.CreateFromSuggestion(context.Background(), "sup-1", "prod-1", 0, decimal.Zero); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}

func TestReceiveAddsEveryLineToStock(t *testing.T) {
	writer := &fakePurchaseWriter{received: &Purchase{
		ID:     "po-1",
		Status: StatusReceived,
		Items: []PurchaseItem{
			{ProductID: "p1", Quantity: 10},
			{ProductID: "p2", Quantity: 3},
		},
	}}
	stock := &fakeStock{}
	svc := NewService(writer, stock)

	p, err := svc.Receive(context.Background(), "po-1")
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if p.Status != StatusReceived {
		t.Fatalf("status = %q", p.Status)
	}
	if stock.deltas["p1"] != 10 || stock.deltas["p2"] != 3 {
		t.Fatalf("stock deltas = %+v", stock.deltas)
	}
}

func TestReceiveInvalidStatePropagates(t *testing.T) {
	writer := &fakePurchaseWriter{receiveErr: ErrInvalidState}
	stock := &fakeStock{}
	svc := NewService(writer, stock)

	if _, err := svc.Receive(context.Background(), "po-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if len(stock.deltas) != 0 {
		t.Fatalf("no stock movement expected, got %+v", stock.deltas)
	}
}

func TestReceiveStockFailureDoesNotFailTransition(t *testing.T) {
	writer := &fakePurchaseWriter{received: &Purchase{
		ID: "po-1", Status: StatusReceived,
		Items: []PurchaseItem{{ProductID: "p1", Quantity: 5}},
	}}
	svc := NewService(writer, &fakeStock{err: errors.New("db down")})

	p, err := svc.Receive(context.Background(), "po-1")
	if err != nil {
		t.Fatalf("Receive should not fail on stock error: %v", err)
	}
	if p.Status != StatusReceived {
		t.Fatalf("status = %q", p.Status)
	}
}
