package alerts

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// collectingBroker is a test double that records published messages.
type collectingBroker struct {
	mu       sync.Mutex
	topics   []string
	keys     []string
	values   [][]byte
	failWith error
}

func (b *collectingBroker) Publish(topic, key string, value []byte) error {
	if b.failWith != nil {
		return b.failWith
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
	return nil
}

func (b *collectingBroker) Subscribe(topic string, handler MessageHandler) (string, error) {
	return "sub-1", nil
}

func (b *collectingBroker) Close() error { return nil }

func TestProducer_PublishWireFormat(t *testing.T) {
	broker := &collectingBroker{}
	producer := NewProducer(broker, "stock-alerts")

	err := producer.Publish(Observation{
		ProductID:    "42",
		SKU:          "WID-001",
		Name:         "Widget",
		CurrentStock: 3,
		Threshold:    10,
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(broker.values) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(broker.values))
	}
	if broker.topics[0] != "stock-alerts" {
		t.Errorf("expected topic stock-alerts, got %s", broker.topics[0])
	}
	if broker.keys[0] != "42" {
		t.Errorf("expected key 42 (product id), got %s", broker.keys[0])
	}

	var alert StockAlert
	if err := json.Unmarshal(broker.values[0], &alert); err != nil {
		t.Fatalf("published payload is not valid JSON: %v", err)
	}
	if alert.Type != TypeLowStock {
		t.Errorf("expected type %s, got %s", TypeLowStock, alert.Type)
	}
	if alert.ProductID != "42" || alert.SKU != "WID-001" || alert.ProductName != "Widget" {
		t.Errorf("unexpected identity fields: %+v", alert)
	}
	if alert.CurrentStock != 3 || alert.Threshold != 10 {
		t.Errorf("unexpected stock fields: %+v", alert)
	}
	if alert.Severity != SeverityHigh {
		t.Errorf("expected severity HIGH for 3/10, got %s", alert.Severity)
	}
	if alert.Timestamp.IsZero() || time.Since(alert.Timestamp) > time.Minute {
		t.Errorf("expected a fresh timestamp, got %s", alert.Timestamp)
	}
}

func TestProducer_PublishTimestampIsISO8601(t *testing.T) {
	broker := &collectingBroker{}
	producer := NewProducer(broker, "stock-alerts")

	if err := producer.Publish(Observation{ProductID: "1", SKU: "A", CurrentStock: 0, Threshold: 5}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(broker.values[0], &raw); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	var ts string
	if err := json.Unmarshal(raw["timestamp"], &ts); err != nil {
		t.Fatalf("timestamp is not a string: %v", err)
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Errorf("timestamp %q is not ISO-8601/RFC3339: %v", ts, err)
	}
}

func TestProducer_BrokerFailureReturnsBrokerUnavailable(t *testing.T) {
	broker := &collectingBroker{failWith: errors.New("connection refused")}
	producer := NewProducer(broker, "stock-alerts")

	err := producer.Publish(Observation{ProductID: "1", SKU: "A", CurrentStock: 0, Threshold: 5})
	if err == nil {
		t.Fatal("expected error when broker publish fails")
	}
	if !errors.Is(err, ErrBrokerUnavailable) {
		t.Errorf("expected ErrBrokerUnavailable, got %v", err)
	}
}
