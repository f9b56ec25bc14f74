package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{"PORT", "SERVER_PORT", "LEDGER_CONSISTENCY_MODE", "TRANSFER_MAX_CONFLICT_RETRIES", "CORS_ALLOWED_ORIGINS", "STORAGE_DRIVER"} {
		unsetEnvWithCleanup(t, key)
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.ConsistencyMode != ConsistencyModeTransaction {
		t.Fatalf("expected transaction mode by default, got %q", cfg.ConsistencyMode)
	}
	if cfg.TransferMaxConflictRetries != 3 {
		t.Fatalf("expected 3 conflict retries, got %d", cfg.TransferMaxConflictRetries)
	}
	if cfg.TransferRetryBaseDelay() != 25*time.Millisecond {
		t.Fatalf("expected 25ms base delay, got %s", cfg.TransferRetryBaseDelay())
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard CORS origin, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.StorageDriver != StorageDriverPostgres {
		t.Fatalf("expected postgres storage by default, got %q", cfg.StorageDriver)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "9000")
	setEnvWithCleanup(t, "PORT", "9100")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9100" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_UsesSupabaseSecretAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "AUTH_JWT_SECRET")
	setEnvWithCleanup(t, "SUPABASE_JWT_SECRET", "alias-secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AuthJWTSecret != "alias-secret" {
		t.Fatalf("expected AuthJWTSecret from alias env var, got %q", cfg.AuthJWTSecret)
	}
}

func TestLoadConfig_NormalizesModeAndRetries(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "LEDGER_CONSISTENCY_MODE", " SAGA ")
	setEnvWithCleanup(t, "TRANSFER_MAX_CONFLICT_RETRIES", "50")
	setEnvWithCleanup(t, "ALERT_EMAIL_TO", "ops@example.com, , risk@example.com")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ConsistencyMode != ConsistencyModeSaga {
		t.Fatalf("expected saga mode, got %q", cfg.ConsistencyMode)
	}
	if cfg.TransferMaxConflictRetries != 10 {
		t.Fatalf("expected retries capped at 10, got %d", cfg.TransferMaxConflictRetries)
	}
	if len(cfg.AlertEmailTo) != 2 || cfg.AlertEmailTo[1] != "risk@example.com" {
		t.Fatalf("unexpected alert recipients: %v", cfg.AlertEmailTo)
	}
}

func TestLoadConfig_UnknownModeFallsBackToTransaction(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "LEDGER_CONSISTENCY_MODE", "eventual")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ConsistencyMode != ConsistencyModeTransaction {
		t.Fatalf("expected fallback to transaction mode, got %q", cfg.ConsistencyMode)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
