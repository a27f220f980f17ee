package db

import (
	"testing"
	"time"
)

func TestParsePoolConfig_AppliesBounds(t *testing.T) {
	cfg, err := parsePoolConfig(PoolConfig{
		DatabaseURL:     "postgres://u:p@localhost:5432/practice?sslmode=require",
		MaxConns:        10,
		MinConns:        2,
		MaxConnIdleTime: 20 * time.Second,
		ConnectTimeout:  10 * time.Second,
		RequireTLS:      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxConns != 10 {
		t.Errorf("MaxConns = %d, want 10", cfg.MaxConns)
	}
	if cfg.MinConns != 2 {
		t.Errorf("MinConns = %d, want 2", cfg.MinConns)
	}
	if cfg.MaxConnIdleTime != 20*time.Second {
		t.Errorf("MaxConnIdleTime = %s, want 20s", cfg.MaxConnIdleTime)
	}
	if cfg.ConnConfig.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %s, want 10s", cfg.ConnConfig.ConnectTimeout)
	}
	if cfg.ConnConfig.TLSConfig == nil {
		t.Error("expected TLS config for sslmode=require")
	}
}

func TestParsePoolConfig_RejectsPlaintextWhenTLSRequired(t *testing.T) {
	_, err := parsePoolConfig(PoolConfig{
		DatabaseURL: "postgres://u:p@localhost:5432/practice?sslmode=disable",
		RequireTLS:  true,
	})
	if err == nil {
		t.Fatal("expected error for sslmode=disable with RequireTLS")
	}
}

func TestParsePoolConfig_AllowsPlaintextInDev(t *testing.T) {
	_, err := parsePoolConfig(PoolConfig{
		DatabaseURL: "postgres://u:p@localhost:5432/practice?sslmode=disable",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParsePoolConfig_InvalidURL(t *testing.T) {
	_, err := parsePoolConfig(PoolConfig{DatabaseURL: "postgres://u:p@localhost:notaport/practice"})
	if err == nil {
		t.Fatal("expected parse error")
	}
}
