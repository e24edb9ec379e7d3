package config

import (
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresExternalServices(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "production", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "kidcoms", SSLMode: "require"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret", JWTIssuer: "iss", JWTAudience: "aud"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without ARIA_URL and ROOMS_API_KEY")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "kidcoms", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Signal.PollInterval != 3*time.Second {
		t.Fatalf("expected 3s poll interval default, got %v", c.Signal.PollInterval)
	}
	if c.Signal.RingTTL != 45*time.Second {
		t.Fatalf("expected 45s ring ttl default, got %v", c.Signal.RingTTL)
	}
	if c.ARIA.Timeout != 2*time.Second {
		t.Fatalf("expected 2s moderation timeout default, got %v", c.ARIA.Timeout)
	}
}

func TestValidate_RingTTLMustExceedPollInterval(t *testing.T) {
	c := Config{
		App:    AppConfig{Env: "local", Port: 8080},
		DB:     DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "kidcoms"},
		Redis:  RedisConfig{Host: "localhost", Port: 6379},
		Auth:   AuthConfig{JWTSecret: "secret"},
		Signal: SignalConfig{PollInterval: 10 * time.Second, RingTTL: 5 * time.Second},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when RING_TTL <= POLL_INTERVAL")
	}
}
