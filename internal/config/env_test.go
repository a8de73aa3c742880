package config

import (
	"testing"
	"time"
)

func TestLoadEnvDefaults(t *testing.T) {
	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv returned error: %v", err)
	}
	if env.AppAddr != ":8080" {
		t.Fatalf("unexpected app addr %q", env.AppAddr)
	}
	if env.PaymentTopic != "bank-transfer-payment-events" || env.PaymentDLQTopic != "bank-transfer-payment-events-dlq" {
		t.Fatalf("unexpected topics %q %q", env.PaymentTopic, env.PaymentDLQTopic)
	}
	if env.KafkaGroupID != "car-booking-service-group" {
		t.Fatalf("unexpected group id %q", env.KafkaGroupID)
	}
	if env.SweepInterval != time.Hour {
		t.Fatalf("unexpected sweep interval %v", env.SweepInterval)
	}
	if env.DBMaxOpenConns != 25 || env.DBMaxIdleConns != 25 || env.DBConnMaxLifetime != 10*time.Minute || env.DBConnMaxIdleTime != 5*time.Minute {
		t.Fatalf("unexpected pool defaults %d %d %v %v", env.DBMaxOpenConns, env.DBMaxIdleConns, env.DBConnMaxLifetime, env.DBConnMaxIdleTime)
	}
	if env.BreakerOpenWait != 45*time.Second || env.RetryAttempts != 2 || env.RetryWait != 500*time.Millisecond {
		t.Fatalf("unexpected resilience defaults %+v", env)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FEED_BROKER", " RabbitMQ ")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SWEEP_INTERVAL", "15m")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv returned error: %v", err)
	}
	if env.FeedBroker != "rabbitmq" {
		t.Fatalf("expected normalized broker, got %q", env.FeedBroker)
	}
	if len(env.KafkaBrokers) != 2 || env.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", env.KafkaBrokers)
	}
	if env.SweepInterval != 15*time.Minute {
		t.Fatalf("unexpected sweep interval %v", env.SweepInterval)
	}
}

func TestLoadEnvRejectsBadDuration(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "soon")
	if _, err := LoadEnv(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
