package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Port string

	// Snowflake connection (key-pair auth).
	Account              string
	User                 string
	Role                 string
	Warehouse            string
	Database             string
	Schema               string
	PrivateKeyPath       string
	PrivateKeyPassphrase string

	Stage string // internal stage holding uploaded diagrams
	Model string // Cortex vision model used for completions

	StorageBackend   string // "memory" or "redis"
	RedisAddr        string
	UseMockWarehouse bool // true = fake stage + completer, no Snowflake needed
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

// Load reads all env vars and builds the config
func Load() *Config {
	return &Config{
		Port: getEnv("DIAG_PORT", "8080"),

		Account:              getEnv("DIAG_SNOWFLAKE_ACCOUNT", ""),
		User:                 getEnv("DIAG_SNOWFLAKE_USER", ""),
		Role:                 getEnv("DIAG_SNOWFLAKE_ROLE", ""),
		Warehouse:            getEnv("DIAG_SNOWFLAKE_WAREHOUSE", ""),
		Database:             getEnv("DIAG_SNOWFLAKE_DATABASE", ""),
		Schema:               getEnv("DIAG_SNOWFLAKE_SCHEMA", ""),
		PrivateKeyPath:       getEnv("DIAG_SNOWFLAKE_PRIVATE_KEY_PATH", ""),
		PrivateKeyPassphrase: getEnv("DIAG_SNOWFLAKE_PRIVATE_KEY_PASSPHRASE", ""),

		Stage: getEnv("DIAG_STAGE", "network_diagrams"),
		Model: getEnv("DIAG_MODEL", "claude-3-5-sonnet"),

		StorageBackend:   getEnv("DIAG_STORAGE_BACKEND", "memory"),
		RedisAddr:        getEnv("DIAG_REDIS_ADDR", "localhost:6379"),
		UseMockWarehouse: getBoolEnv("DIAG_USE_MOCK_WAREHOUSE", false),
	}
}

// Validate checks the fields the Snowflake adapters need. It reports every
// missing field at once so a misconfigured deployment fails with one clear
// message at startup. Not called in mock-warehouse mode.
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		name, value string
	}{
		{"DIAG_SNOWFLAKE_ACCOUNT", c.Account},
		{"DIAG_SNOWFLAKE_USER", c.User},
		{"DIAG_SNOWFLAKE_WAREHOUSE", c.Warehouse},
		{"DIAG_SNOWFLAKE_DATABASE", c.Database},
		{"DIAG_SNOWFLAKE_SCHEMA", c.Schema},
		{"DIAG_SNOWFLAKE_PRIVATE_KEY_PATH", c.PrivateKeyPath},
	}
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
