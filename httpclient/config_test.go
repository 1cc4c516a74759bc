package httpclient

import (
	"testing"
	"time"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("expected default timeout 2m, got %v", cfg.Timeout)
	}
	if cfg.MaxIdleConnsPerHost != 16 {
		t.Errorf("expected 16 idle conns per host, got %d", cfg.MaxIdleConnsPerHost)
	}
}

func TestConfig_ApplyDefaults_PreservesExisting(t *testing.T) {
	cfg := Config{Timeout: 10 * time.Second, MaxIdleConnsPerHost: 4}
	cfg.ApplyDefaults()
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.Timeout)
	}
	if cfg.MaxIdleConnsPerHost != 4 {
		t.Errorf("expected 4 idle conns per host, got %d", cfg.MaxIdleConnsPerHost)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (&Config{Timeout: 10 * time.Second}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (&Config{Timeout: -1}).Validate(); err == nil {
		t.Fatal("expected error for negative timeout")
	}
}
