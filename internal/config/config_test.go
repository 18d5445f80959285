package config_test

import (
	"strings"
	"testing"

	"github.com/visionstage/diagram-agent/internal/config"
)

func TestValidateReportsAllMissingFields(t *testing.T) {
	cfg := &config.Config{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	for _, field := range []string{
		"DIAG_SNOWFLAKE_ACCOUNT",
		"DIAG_SNOWFLAKE_USER",
		"DIAG_SNOWFLAKE_PRIVATE_KEY_PATH",
	} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error does not mention %s: %v", field, err)
		}
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := &config.Config{
		Account:        "xy12345",
		User:           "analyzer",
		Warehouse:      "compute_wh",
		Database:       "diagrams",
		Schema:         "public",
		PrivateKeyPath: "/etc/keys/rsa_key.p8",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	if cfg.Stage != "network_diagrams" {
		t.Errorf("default stage = %q", cfg.Stage)
	}
	if cfg.Model != "claude-3-5-sonnet" {
		t.Errorf("default model = %q", cfg.Model)
	}
	if cfg.StorageBackend != "memory" {
		t.Errorf("default storage backend = %q", cfg.StorageBackend)
	}
}
