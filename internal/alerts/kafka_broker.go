package alerts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds configuration for the Kafka broker.
type KafkaConfig struct {
	Brokers       []string      // list of broker addresses
	ConsumerGroup string        // consumer group ID
	WriteTimeout  time.Duration // upper bound on a synchronous publish
}

// KafkaBroker implements MessageBroker using Apache Kafka via
// segmentio/kafka-go. The broker shares one producer and creates a
// consumer per subscription. Offsets are committed only after the handler
// returns nil, giving at-least-once delivery. Call Close() to stop all
// consumers and the producer.
type KafkaBroker struct {
	config  KafkaConfig
	writer  *kafka.Writer
	mu      sync.Mutex
	readers map[string]*kafkaSubscription
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type kafkaSubscription struct {
	id      string
	reader  *kafka.Reader
	handler MessageHandler
	cancel  context.CancelFunc
}

// NewKafkaBroker creates a new KafkaBroker.
func NewKafkaBroker(config KafkaConfig) (*KafkaBroker, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker address is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "stock-alert-group"
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	writer := &kafka.Writer{
		Addr: kafka.TCP(config.Brokers...),
		// Hash balancer: one key always maps to one partition, which is
		// what keeps alerts for a single product ordered.
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        false,
	}

	return &KafkaBroker{
		config:  config,
		writer:  writer,
		readers: make(map[string]*kafkaSubscription),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Publish writes a keyed message to the Kafka topic, waiting for broker
// acknowledgement up to the configured write timeout.
func (b *KafkaBroker) Publish(topic, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("broker is closed")
	}
	b.mu.Unlock()

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}

	ctx, cancel := context.WithTimeout(b.ctx, b.config.WriteTimeout)
	defer cancel()

	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to kafka: %w", err)
	}
	return nil
}

// Subscribe creates a Kafka consumer in the configured group for the given
// topic and invokes the handler for each message received. New consumer
// groups start from the latest offset, so alerts missed during downtime
// are not replayed. The consumer runs in a background goroutine until
// Close() is called.
func (b *KafkaBroker) Subscribe(topic string, handler MessageHandler) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", fmt.Errorf("broker is closed")
	}

	id := uuid.New().String()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.config.Brokers,
		Topic:       topic,
		GroupID:     b.config.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})

	subCtx, subCancel := context.WithCancel(b.ctx)

	sub := &kafkaSubscription{
		id:      id,
		reader:  reader,
		handler: handler,
		cancel:  subCancel,
	}

	b.readers[id] = sub

	go b.consumeLoop(subCtx, sub)

	return id, nil
}

// Close shuts down all consumers and the producer.
func (b *KafkaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	b.cancel()

	var firstErr error

	for _, sub := range b.readers {
		sub.cancel()
		if err := sub.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := b.writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

func (b *KafkaBroker) consumeLoop(ctx context.Context, sub *kafkaSubscription) {
	backoff := time.Second

	for {
		msg, err := sub.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // context cancelled, shutting down
			}
			log.Printf("alerts: kafka consumer %s fetch error: %v (retrying in %s)", sub.id, err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := sub.handler(string(msg.Key), msg.Value); err != nil {
			// Offset not committed: the message is redelivered after a
			// restart or rebalance.
			log.Printf("alerts: kafka consumer %s handler error: %v", sub.id, err)
			continue
		}

		if err := sub.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("alerts: kafka consumer %s commit error: %v", sub.id, err)
		}
	}
}
