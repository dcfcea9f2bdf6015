package alerts

import (
	"errors"
	"time"
)

// TypeLowStock is the wire type tag carried by every stock alert message.
const TypeLowStock = "LOW_STOCK_ALERT"

// ErrBrokerUnavailable indicates that the alert broker could not be
// reached. Alert publishing is best-effort relative to the stock write
// that triggered it, so callers log this error instead of rolling back.
var ErrBrokerUnavailable = errors.New("alert broker unavailable")

// Severity classifies the urgency of a stock alert relative to the
// product's configured low-stock threshold.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
)

// ComputeSeverity derives the severity for a stock level at or below the
// threshold: CRITICAL when the product is out of stock, HIGH at or below
// half the threshold, MEDIUM otherwise.
func ComputeSeverity(currentStock, threshold int) Severity {
	switch {
	case currentStock == 0:
		return SeverityCritical
	case 2*currentStock <= threshold:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// Observation is a point-in-time stock reading for a product, captured by
// the inventory mutation path after a successful write.
type Observation struct {
	ProductID    string
	SKU          string
	Name         string
	CurrentStock int
	Threshold    int
}

// StockAlert is the broker message emitted once per qualifying inventory
// mutation. Consumers may receive it more than once (broker redelivery)
// and must tolerate duplicates.
type StockAlert struct {
	Type         string    `json:"type"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	SKU          string    `json:"sku"`
	CurrentStock int       `json:"current_stock"`
	Threshold    int       `json:"threshold"`
	Severity     Severity  `json:"severity"`
	Timestamp    time.Time `json:"timestamp"`
}
