package live

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Topic names observers can join. Every observer joins TopicStockAlerts on
// connect; per-product topics and the suggestion topic are opt-in.
const (
	TopicStockAlerts         = "stock_alerts"
	TopicPurchaseSuggestions = "purchase_suggestions"

	productTopicPrefix = "product_alerts_"
)

// ProductTopic returns the per-product alert topic name.
func ProductTopic(productID string) string {
	return productTopicPrefix + productID
}

// Observer is a live connection capable of receiving hub messages. Send
// must not block; an error marks the observer unreachable and removes it
// from the topic being broadcast.
type Observer interface {
	ID() string
	Send(data []byte) error
}

// Hub groups live observers by topic and broadcasts messages to every
// member of a group. Membership is runtime-only state scoped to the hub's
// lifetime; nothing is persisted. Safe for concurrent use: one dispatcher
// publishes while observer connections register and drop from their own
// I/O goroutines.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]Observer // topic -> observer ID -> observer
}

// NewHub allocates a Hub with no topics.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[string]Observer)}
}

// Connect registers the observer on the default stock alerts topic and
// acknowledges the connection with a server timestamp.
func (h *Hub) Connect(o Observer) {
	h.mu.Lock()
	h.addLocked(TopicStockAlerts, o)
	h.mu.Unlock()

	log.Printf("live: observer %s connected", o.ID())

	h.deliver(TopicStockAlerts, o, map[string]interface{}{
		"type":      "connection_established",
		"message":   "Connected to stock alerts stream",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Disconnect removes the observer from every topic it belongs to. Calling
// it for an unknown observer is a no-op, so a double disconnect is safe.
func (h *Hub) Disconnect(o Observer) {
	h.mu.Lock()
	for topic, members := range h.topics {
		if _, ok := members[o.ID()]; ok {
			delete(members, o.ID())
			if len(members) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	h.mu.Unlock()

	log.Printf("live: observer %s disconnected", o.ID())
}

// Subscribe adds the observer to an additional named topic and
// acknowledges the subscription.
func (h *Hub) Subscribe(o Observer, topic string) {
	h.mu.Lock()
	h.addLocked(topic, o)
	h.mu.Unlock()

	log.Printf("live: observer %s subscribed to %s", o.ID(), topic)

	h.deliver(topic, o, subscribedAck(topic))
}

// Heartbeat echoes the observer's ping token back as a pong, letting the
// observer detect liveness. Topic membership is untouched.
func (h *Hub) Heartbeat(o Observer, token string) {
	h.deliver("", o, map[string]interface{}{
		"type":      "pong",
		"timestamp": token,
	})
}

// Publish delivers message to every current member of topic in the order
// Publish was invoked. A broadcast is best-effort per observer: members
// whose send fails are dropped from the topic, and the publish continues
// for the rest.
func (h *Hub) Publish(topic string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message for %s: %w", topic, err)
	}

	// Snapshot membership so broadcasting never interleaves with a
	// half-applied mutation.
	h.mu.RLock()
	members := make([]Observer, 0, len(h.topics[topic]))
	for _, o := range h.topics[topic] {
		members = append(members, o)
	}
	h.mu.RUnlock()

	for _, o := range members {
		if err := o.Send(data); err != nil {
			log.Printf("live: dropping unreachable observer %s from %s: %v", o.ID(), topic, err)
			h.remove(topic, o)
		}
	}
	return nil
}

// Members reports the current number of observers on a topic.
func (h *Hub) Members(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) addLocked(topic string, o Observer) {
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]Observer)
	}
	h.topics[topic][o.ID()] = o
}

func (h *Hub) remove(topic string, o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.topics[topic]; ok {
		delete(members, o.ID())
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
}

// deliver sends a single control/ack message to one observer, dropping the
// observer from the topic if the send fails.
func (h *Hub) deliver(topic string, o Observer, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("live: marshal ack for %s: %v", o.ID(), err)
		return
	}
	if err := o.Send(data); err != nil {
		log.Printf("live: ack send to %s failed: %v", o.ID(), err)
		if topic != "" {
			h.remove(topic, o)
		}
	}
}

func subscribedAck(topic string) map[string]interface{} {
	if id, ok := strings.CutPrefix(topic, productTopicPrefix); ok {
		return map[string]interface{}{"type": "subscribed", "product_id": id}
	}
	return map[string]interface{}{"type": "subscribed", "topic": topic}
}
