package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// directBroker delivers published messages synchronously to the subscribed
// handler, and records whether each delivery was acknowledged.
type directBroker struct {
	mu      sync.Mutex
	handler MessageHandler
	acked   []bool
	closed  bool
}

func (b *directBroker) Publish(topic, key string, value []byte) error {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h == nil {
		return nil
	}
	err := h(key, value)
	b.mu.Lock()
	b.acked = append(b.acked, err == nil)
	b.mu.Unlock()
	return nil
}

func (b *directBroker) Subscribe(topic string, handler MessageHandler) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
	return "sub-1", nil
}

func (b *directBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func mustMarshal(t *testing.T, alert StockAlert) []byte {
	t.Helper()
	data, err := json.Marshal(alert)
	if err != nil {
		t.Fatalf("marshal alert: %v", err)
	}
	return data
}

func testAlert() StockAlert {
	return StockAlert{
		Type:         TypeLowStock,
		ProductID:    "7",
		ProductName:  "Widget",
		SKU:          "WID-007",
		CurrentStock: 2,
		Threshold:    10,
		Severity:     SeverityHigh,
		Timestamp:    time.Now().UTC(),
	}
}

func TestDispatcher_RunsAllStages(t *testing.T) {
	broker := &directBroker{}
	var got []string
	var mu sync.Mutex
	record := func(name string) Stage {
		return Stage{Name: name, Fn: func(ctx context.Context, alert StockAlert) error {
			mu.Lock()
			got = append(got, name)
			mu.Unlock()
			return nil
		}}
	}

	d := NewDispatcher(broker, "stock-alerts", record("fanout"), record("suggest"))
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	broker.Publish("stock-alerts", "7", mustMarshal(t, testAlert()))

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "fanout" || got[1] != "suggest" {
		t.Errorf("expected stages [fanout suggest] in order, got %v", got)
	}
}

func TestDispatcher_StageFailureDoesNotBlockOthers(t *testing.T) {
	broker := &directBroker{}
	var suggested int
	var mu sync.Mutex

	failing := Stage{Name: "fanout", Fn: func(ctx context.Context, alert StockAlert) error {
		return errors.New("hub unreachable")
	}}
	counting := Stage{Name: "suggest", Fn: func(ctx context.Context, alert StockAlert) error {
		mu.Lock()
		suggested++
		mu.Unlock()
		return nil
	}}

	d := NewDispatcher(broker, "stock-alerts", failing, counting)
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	broker.Publish("stock-alerts", "7", mustMarshal(t, testAlert()))

	mu.Lock()
	defer mu.Unlock()
	if suggested != 1 {
		t.Errorf("expected suggestion stage to run despite fan-out failure, ran %d times", suggested)
	}

	// The message is still acknowledged: stage failures never abort the loop.
	if len(broker.acked) != 1 || !broker.acked[0] {
		t.Errorf("expected message to be acknowledged, got %v", broker.acked)
	}
}

func TestDispatcher_MalformedMessageIsAcknowledged(t *testing.T) {
	broker := &directBroker{}
	var ran int
	var mu sync.Mutex

	stage := Stage{Name: "fanout", Fn: func(ctx context.Context, alert StockAlert) error {
		mu.Lock()
		ran++
		mu.Unlock()
		return nil
	}}

	d := NewDispatcher(broker, "stock-alerts", stage)
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	broker.Publish("stock-alerts", "7", []byte("{not json"))

	mu.Lock()
	if ran != 0 {
		t.Errorf("stages should not run for malformed payloads, ran %d times", ran)
	}
	mu.Unlock()

	// Poison messages are committed past, not redelivered forever.
	if len(broker.acked) != 1 || !broker.acked[0] {
		t.Errorf("expected poison message to be acknowledged, got %v", broker.acked)
	}
}

func TestDispatcher_DuplicateDeliveryIsSafe(t *testing.T) {
	broker := &directBroker{}
	var ran int
	var mu sync.Mutex

	stage := Stage{Name: "fanout", Fn: func(ctx context.Context, alert StockAlert) error {
		mu.Lock()
		ran++
		mu.Unlock()
		return nil
	}}

	d := NewDispatcher(broker, "stock-alerts", stage)
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	payload := mustMarshal(t, testAlert())
	broker.Publish("stock-alerts", "7", payload)
	broker.Publish("stock-alerts", "7", payload)

	mu.Lock()
	defer mu.Unlock()
	if ran != 2 {
		t.Errorf("expected stage to run once per delivery, ran %d times", ran)
	}
}

func TestDispatcher_StartTwiceFails(t *testing.T) {
	broker := &directBroker{}
	d := NewDispatcher(broker, "stock-alerts")

	if err := d.Start(); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := d.Start(); err == nil {
		t.Error("expected error starting a running dispatcher")
	}
}

func TestDispatcher_StopClosesBroker(t *testing.T) {
	broker := &directBroker{}
	d := NewDispatcher(broker, "stock-alerts")

	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Error("expected Running() true after Start")
	}

	d.Stop()

	if d.Running() {
		t.Error("expected Running() false after Stop")
	}
	broker.mu.Lock()
	closed := broker.closed
	broker.mu.Unlock()
	if !closed {
		t.Error("expected Stop to close the broker connection")
	}

	// Stop is idempotent.
	d.Stop()
}
