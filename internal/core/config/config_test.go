package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestShareSecrets(t *testing.T) {
	// Clean environment
	os.Unsetenv("QF_SHARE_SECRET")
	os.Unsetenv("QF_SHARE_SECRET_1")
	os.Unsetenv("QF_SHARE_SECRET_2")

	t.Run("single secret", func(t *testing.T) {
		os.Setenv("QF_SHARE_SECRET", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("QF_SHARE_SECRET")

		secrets, err := ShareSecrets()
		if err != nil {
			t.Fatalf("ShareSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets["0123456789abcdef0123456789abcdef"]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		os.Setenv("QF_SHARE_SECRET_1", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		os.Setenv("QF_SHARE_SECRET_2", "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("QF_SHARE_SECRET_1")
		defer os.Unsetenv("QF_SHARE_SECRET_2")

		secrets, err := ShareSecrets()
		if err != nil {
			t.Fatalf("ShareSecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		os.Setenv("QF_SHARE_SECRET", "invalid_format")
		defer os.Unsetenv("QF_SHARE_SECRET")

		_, err := ShareSecrets()
		if err == nil {
			t.Error("expected error for invalid format")
		}
	})

	t.Run("duplicate secret_id in numbered secrets", func(t *testing.T) {
		os.Setenv("QF_SHARE_SECRET_1", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		os.Setenv("QF_SHARE_SECRET_2", "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("QF_SHARE_SECRET_1")
		defer os.Unsetenv("QF_SHARE_SECRET_2")

		_, err := ShareSecrets()
		if err == nil {
			t.Error("expected error for duplicate secret_id")
		}
	})

	t.Run("duplicate secret_id between single and numbered", func(t *testing.T) {
		os.Setenv("QF_SHARE_SECRET", "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		os.Setenv("QF_SHARE_SECRET_1", "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		defer os.Unsetenv("QF_SHARE_SECRET")
		defer os.Unsetenv("QF_SHARE_SECRET_1")

		_, err := ShareSecrets()
		if err == nil {
			t.Error("expected error for duplicate secret_id between QF_SHARE_SECRET and QF_SHARE_SECRET_1")
		}
	})

	t.Run("no secrets yields empty map", func(t *testing.T) {
		secrets, err := ShareSecrets()
		if err != nil {
			t.Fatalf("ShareSecrets failed: %v", err)
		}
		if len(secrets) != 0 {
			t.Errorf("expected empty map, got %d secrets", len(secrets))
		}
	})
}

func TestParseShareSecretWithID(t *testing.T) {
	t.Run("valid format", func(t *testing.T) {
		secretID, secret, err := ParseShareSecretWithID("0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err != nil {
			t.Fatalf("ParseShareSecretWithID failed: %v", err)
		}
		if secretID != "0123456789abcdef0123456789abcdef" {
			t.Errorf("unexpected secret_id: %s", secretID)
		}
		if len(secret) < 32 {
			t.Errorf("secret too short: %d bytes", len(secret))
		}
	})

	t.Run("missing colon", func(t *testing.T) {
		_, _, err := ParseShareSecretWithID("0123456789abcdef0123456789abcdef")
		if err == nil {
			t.Error("expected error for missing colon")
		}
	})

	t.Run("invalid secret_id length", func(t *testing.T) {
		_, _, err := ParseShareSecretWithID("tooshort:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err == nil {
			t.Error("expected error for short secret_id")
		}
	})

	t.Run("non-hex secret_id", func(t *testing.T) {
		_, _, err := ParseShareSecretWithID("0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err == nil {
			t.Error("expected error for non-hex secret_id")
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, _, err := ParseShareSecretWithID("0123456789abcdef0123456789abcdef:not-valid-base64!!!")
		if err == nil {
			t.Error("expected error for invalid base64")
		}
	})

	t.Run("secret too short", func(t *testing.T) {
		// "short" in base64
		_, _, err := ParseShareSecretWithID("0123456789abcdef0123456789abcdef:c2hvcnQ=")
		if err == nil {
			t.Error("expected error for secret < 32 bytes")
		}
	})
}

func TestLoadConfig(t *testing.T) {
	// Clean environment
	os.Unsetenv("QF_SERVICE_DATABASE_URL")
	os.Unsetenv("QF_SERVICE_MAX_TREE_DEPTH")
	os.Unsetenv("QF_SERVICE_CACHE_SIZE")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.DatabaseURL != "sqlite://queryforge.db" {
			t.Errorf("expected database_url sqlite://queryforge.db, got %s", cfg.DatabaseURL)
		}
		if cfg.MaxTreeDepth != 10 {
			t.Errorf("expected max_tree_depth 10, got %d", cfg.MaxTreeDepth)
		}
		if cfg.MaxConditions != 100 {
			t.Errorf("expected max_conditions 100, got %d", cfg.MaxConditions)
		}
		if cfg.CacheSize != 1024 {
			t.Errorf("expected cache_size 1024, got %d", cfg.CacheSize)
		}
		if cfg.CacheTTL != 5*time.Minute {
			t.Errorf("expected cache_ttl 5m, got %v", cfg.CacheTTL)
		}
		if cfg.BreakerFailureThreshold != 5 {
			t.Errorf("expected breaker_failure_threshold 5, got %d", cfg.BreakerFailureThreshold)
		}
		if cfg.BreakerSuccessThreshold != 2 {
			t.Errorf("expected breaker_success_threshold 2, got %d", cfg.BreakerSuccessThreshold)
		}
		if cfg.BreakerRecoveryTimeout != 30*time.Second {
			t.Errorf("expected breaker_recovery_timeout 30s, got %v", cfg.BreakerRecoveryTimeout)
		}
		if cfg.AnalyticsWorkload {
			t.Error("expected analytics_workload false by default")
		}
	})

	t.Run("environment override", func(t *testing.T) {
		os.Setenv("QF_SERVICE_DATABASE_URL", "postgres://localhost/qf")
		os.Setenv("QF_SERVICE_MAX_TREE_DEPTH", "15")
		defer os.Unsetenv("QF_SERVICE_DATABASE_URL")
		defer os.Unsetenv("QF_SERVICE_MAX_TREE_DEPTH")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.DatabaseURL != "postgres://localhost/qf" {
			t.Errorf("expected postgres://localhost/qf, got %s", cfg.DatabaseURL)
		}
		if cfg.MaxTreeDepth != 15 {
			t.Errorf("expected max_tree_depth 15, got %d", cfg.MaxTreeDepth)
		}
	})

	t.Run("invalid negative values", func(t *testing.T) {
		os.Setenv("QF_SERVICE_CACHE_SIZE", "-1")
		defer os.Unsetenv("QF_SERVICE_CACHE_SIZE")

		_, err := LoadConfig("")
		if err == nil {
			t.Error("expected error for negative cache_size")
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "service:\n  max_tree_depth: 12\n  allowed_fields:\n    - status\n    - priority\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.MaxTreeDepth != 12 {
			t.Errorf("expected max_tree_depth 12, got %d", cfg.MaxTreeDepth)
		}
		if len(cfg.AllowedFields) != 2 {
			t.Errorf("expected 2 allowed fields, got %v", cfg.AllowedFields)
		}
	})

	t.Run("secrets in config file rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "service:\n  share_secret: abc\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}

		_, err := LoadConfig(path)
		if err == nil {
			t.Error("expected error for share_secret in config file")
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/config.yaml")
		if err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestDefaultServiceConfig(t *testing.T) {
	cfg := DefaultServiceConfig()
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
