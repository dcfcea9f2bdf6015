package alerts

import (
	"testing"

	"github.com/stocksentry/backend/internal/config"
)

func TestNewBroker_InMemoryFallback(t *testing.T) {
	cfg := &config.Config{} // KafkaBrokers unset

	broker, err := NewBroker(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer broker.Close()

	if _, ok := broker.(*InMemoryBroker); !ok {
		t.Errorf("expected InMemoryBroker fallback, got %T", broker)
	}
}
