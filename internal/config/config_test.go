package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port '8080', got '%s'", cfg.Port)
	}
	if cfg.StockAlertTopic != "stock-alerts" {
		t.Errorf("expected default alert topic 'stock-alerts', got '%s'", cfg.StockAlertTopic)
	}
	if cfg.KafkaConsumerGroup != "stock-alert-group" {
		t.Errorf("expected default consumer group 'stock-alert-group', got '%s'", cfg.KafkaConsumerGroup)
	}
	if cfg.KafkaBrokers != "" {
		t.Errorf("expected empty Kafka brokers by default, got '%s'", cfg.KafkaBrokers)
	}
	if cfg.KafkaWriteTimeout != 10*time.Second {
		t.Errorf("expected default write timeout 10s, got %s", cfg.KafkaWriteTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("STOCK_ALERT_TOPIC", "alerts-test")
	os.Setenv("KAFKA_WRITE_TIMEOUT", "3s")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("STOCK_ALERT_TOPIC")
	defer os.Unsetenv("KAFKA_WRITE_TIMEOUT")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.StockAlertTopic != "alerts-test" {
		t.Errorf("expected alert topic 'alerts-test', got '%s'", cfg.StockAlertTopic)
	}
	if cfg.KafkaWriteTimeout != 3*time.Second {
		t.Errorf("expected write timeout 3s, got %s", cfg.KafkaWriteTimeout)
	}
}

func TestGetDurationInvalidFallsBack(t *testing.T) {
	os.Setenv("KAFKA_WRITE_TIMEOUT", "not-a-duration")
	defer os.Unsetenv("KAFKA_WRITE_TIMEOUT")

	cfg := Load()
	if cfg.KafkaWriteTimeout != 10*time.Second {
		t.Errorf("expected fallback 10s for invalid duration, got %s", cfg.KafkaWriteTimeout)
	}
}

func TestGetEnvFallback(t *testing.T) {
	result := getEnv("NONEXISTENT_VAR_12345", "fallback")
	if result != "fallback" {
		t.Errorf("expected 'fallback', got '%s'", result)
	}
}
