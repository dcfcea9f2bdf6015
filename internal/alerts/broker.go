package alerts

// MessageHandler is a callback invoked for each message delivered on a
// subscribed topic. Returning a non-nil error prevents the message from
// being acknowledged, so a durable broker will deliver it again.
type MessageHandler func(key string, value []byte) error

// MessageBroker defines the interface for publishing and consuming stock
// alert messages. Implementations include InMemoryBroker (for single-node
// setups and tests) and KafkaBroker (for distributed setups). Messages
// published with the same key are delivered in publish order.
type MessageBroker interface {
	// Publish sends value to the given topic. All messages sharing a key
	// land on the same partition, preserving per-key ordering.
	Publish(topic, key string, value []byte) error

	// Subscribe registers a handler invoked for every message on the
	// topic. Returns a subscription ID for tracking purposes.
	Subscribe(topic string, handler MessageHandler) (string, error)

	// Close shuts down the broker, releasing connections and goroutines.
	// After Close returns, Publish and Subscribe must not be called.
	Close() error
}
