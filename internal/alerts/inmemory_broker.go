package alerts

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

type subscription struct {
	id      string
	handler MessageHandler
}

// InMemoryBroker is a simple, single-process MessageBroker backed by Go
// channels. It preserves publish order per topic but offers no durability
// or redelivery; handler errors are logged and the message is dropped. It
// is suitable for development and tests.
type InMemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string][]subscription // topic -> subscriptions
	closed bool
	msgCh  chan topicMessage
	done   chan struct{}
}

type topicMessage struct {
	topic string
	key   string
	value []byte
}

// NewInMemoryBroker creates and starts an InMemoryBroker. The broker runs a
// background dispatch goroutine; call Close() to stop it.
func NewInMemoryBroker() *InMemoryBroker {
	b := &InMemoryBroker{
		subs:  make(map[string][]subscription),
		msgCh: make(chan topicMessage, 1024),
		done:  make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Publish enqueues a message for asynchronous delivery to all subscribers
// of the given topic.
func (b *InMemoryBroker) Publish(topic, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	b.msgCh <- topicMessage{topic: topic, key: key, value: value}
	return nil
}

// Subscribe registers a handler for the given topic and returns a
// subscription ID.
func (b *InMemoryBroker) Subscribe(topic string, handler MessageHandler) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", fmt.Errorf("broker is closed")
	}

	id := uuid.New().String()
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: handler})
	return id, nil
}

// Close stops the dispatch goroutine and prevents further Publish/Subscribe
// calls.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	close(b.msgCh)
	<-b.done
	return nil
}

// dispatch runs in a goroutine and fans out published messages to the
// matching subscribers in publish order.
func (b *InMemoryBroker) dispatch() {
	defer close(b.done)

	for tm := range b.msgCh {
		b.mu.RLock()
		subs := b.subs[tm.topic]
		// Copy the slice so we can release the lock before calling handlers.
		handlers := make([]MessageHandler, len(subs))
		for i, s := range subs {
			handlers[i] = s.handler
		}
		b.mu.RUnlock()

		for _, h := range handlers {
			if err := h(tm.key, tm.value); err != nil {
				log.Printf("alerts: in-memory broker handler error on %s: %v", tm.topic, err)
			}
		}
	}
}
