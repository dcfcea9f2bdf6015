package alerts

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryBroker_PublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	received := make(chan string, 1)
	_, err := broker.Subscribe("stock-alerts", func(key string, value []byte) error {
		received <- key + ":" + string(value)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := broker.Publish("stock-alerts", "42", []byte("payload")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-received:
		if got != "42:payload" {
			t.Errorf("expected '42:payload', got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestInMemoryBroker_PreservesPublishOrder(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	_, err := broker.Subscribe("stock-alerts", func(key string, value []byte) error {
		mu.Lock()
		got = append(got, string(value))
		if len(got) == 3 {
			close(done)
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	for _, v := range []string{"first", "second", "third"} {
		if err := broker.Publish("stock-alerts", "1", []byte(v)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for deliveries")
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "first" || got[1] != "second" || got[2] != "third" {
		t.Errorf("expected publish order preserved, got %v", got)
	}
}

func TestInMemoryBroker_NoDeliveryAcrossTopics(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	received := make(chan struct{}, 1)
	if _, err := broker.Subscribe("other-topic", func(key string, value []byte) error {
		received <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := broker.Publish("stock-alerts", "1", []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-received:
		t.Fatal("subscriber on a different topic should not receive the message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInMemoryBroker_ClosePreventsFurtherUse(t *testing.T) {
	broker := NewInMemoryBroker()
	broker.Close()

	if err := broker.Publish("stock-alerts", "1", []byte("x")); err == nil {
		t.Error("expected error publishing after close")
	}
	if _, err := broker.Subscribe("stock-alerts", func(string, []byte) error { return nil }); err == nil {
		t.Error("expected error subscribing after close")
	}
}

func TestInMemoryBroker_DoubleCloseIsNoop(t *testing.T) {
	broker := NewInMemoryBroker()
	if err := broker.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := broker.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}
