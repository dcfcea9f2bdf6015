package live

import (
	"context"
	"time"

	"github.com/stocksentry/backend/internal/alerts"
)

// StockAlertMessage is the envelope delivered to observers when a consumed
// alert is fanned out.
type StockAlertMessage struct {
	Type        string            `json:"type"`
	Data        alerts.StockAlert `json:"data"`
	Timestamp   time.Time         `json:"timestamp"`
	DeliveredAt time.Time         `json:"delivered_at"`
}

// AlertFanout returns a dispatcher stage that forwards each consumed alert
// to the global stock_alerts topic and to the product's own topic.
func AlertFanout(hub *Hub) func(ctx context.Context, alert alerts.StockAlert) error {
	return func(ctx context.Context, alert alerts.StockAlert) error {
		msg := StockAlertMessage{
			Type:        "stock_alert",
			Data:        alert,
			Timestamp:   alert.Timestamp,
			DeliveredAt: time.Now().UTC(),
		}
		if err := hub.Publish(TopicStockAlerts, msg); err != nil {
			return err
		}
		return hub.Publish(ProductTopic(alert.ProductID), msg)
	}
}
