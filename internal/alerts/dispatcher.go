package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
)

// Stage is one independent processing step applied to every consumed
// alert — live fan-out and purchase-suggestion generation in production.
// A stage failure is logged and never blocks the other stages, nor the
// consumer loop itself.
type Stage struct {
	Name string
	Fn   func(ctx context.Context, alert StockAlert) error
}

// Dispatcher continuously reads the alert topic as a single consumer group
// and runs every message through all stages. The message is acknowledged
// only after all stages have been attempted, so a crash mid-processing
// redelivers it (at-least-once); stages must tolerate duplicates. Apart
// from the broker read position the loop keeps no state between messages.
type Dispatcher struct {
	broker  MessageBroker
	topic   string
	stages  []Stage
	running atomic.Bool
}

// NewDispatcher creates a Dispatcher. Stages run in the given order for
// each alert.
func NewDispatcher(broker MessageBroker, topic string, stages ...Stage) *Dispatcher {
	return &Dispatcher{broker: broker, topic: topic, stages: stages}
}

// Start subscribes the dispatcher to the alert topic. It returns
// immediately; message handling runs via the broker's consumer goroutine.
func (d *Dispatcher) Start() error {
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already running")
	}
	if _, err := d.broker.Subscribe(d.topic, d.handle); err != nil {
		d.running.Store(false)
		return fmt.Errorf("subscribe to %s: %w", d.topic, err)
	}
	log.Printf("alerts: dispatcher consuming topic %s", d.topic)
	return nil
}

// Running reports whether the dispatcher has been started and not stopped.
func (d *Dispatcher) Running() bool {
	return d.running.Load()
}

// Stop shuts down the broker connection; the consumer loop exits after the
// message currently in flight, letting its stages finish.
func (d *Dispatcher) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	if err := d.broker.Close(); err != nil {
		log.Printf("alerts: dispatcher broker close error: %v", err)
	}
	log.Println("alerts: dispatcher stopped")
}

func (d *Dispatcher) handle(key string, value []byte) error {
	var alert StockAlert
	if err := json.Unmarshal(value, &alert); err != nil {
		// Poison message: acknowledge past it rather than redeliver forever.
		log.Printf("alerts: skipping malformed message (key=%s): %v", key, err)
		return nil
	}

	for _, stage := range d.stages {
		if err := stage.Fn(context.Background(), alert); err != nil {
			log.Printf("alerts: stage %s failed for product %s: %v", stage.Name, alert.ProductID, err)
		}
	}
	return nil
}
