package alerts

import (
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// Producer turns a stock-level observation into a structured alert message
// and publishes it to the alert topic, keyed by product id so that all
// alerts for one product stay broker-ordered.
type Producer struct {
	broker MessageBroker
	topic  string
}

// NewProducer creates a Producer publishing to the given topic.
func NewProducer(broker MessageBroker, topic string) *Producer {
	return &Producer{broker: broker, topic: topic}
}

// Publish derives the alert severity, stamps the current UTC time and
// publishes the alert. On failure it returns an error wrapping
// ErrBrokerUnavailable; the caller must not roll back the stock mutation
// that triggered the alert — publishing is best-effort relative to the
// source-of-truth write.
func (p *Producer) Publish(obs Observation) error {
	alert := StockAlert{
		Type:         TypeLowStock,
		ProductID:    obs.ProductID,
		ProductName:  obs.Name,
		SKU:          obs.SKU,
		CurrentStock: obs.CurrentStock,
		Threshold:    obs.Threshold,
		Severity:     ComputeSeverity(obs.CurrentStock, obs.Threshold),
		Timestamp:    time.Now().UTC(),
	}

	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	if err := p.broker.Publish(p.topic, alert.ProductID, value); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	log.Printf("alerts: published %s alert for %s (stock=%d threshold=%d)",
		alert.Severity, alert.SKU, alert.CurrentStock, alert.Threshold)
	return nil
}
