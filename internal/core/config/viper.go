package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultServiceConfig
	v.SetDefault("service.database_url", "sqlite://queryforge.db")
	v.SetDefault("service.max_tree_depth", 10)
	v.SetDefault("service.max_conditions", 100)
	v.SetDefault("service.cache_size", 1024)
	v.SetDefault("service.cache_ttl", "5m")
	v.SetDefault("service.breaker_failure_threshold", 5)
	v.SetDefault("service.breaker_success_threshold", 2)
	v.SetDefault("service.breaker_recovery_timeout", "30s")
	v.SetDefault("service.allowed_fields", []string{})
	v.SetDefault("service.allowed_tables", []string{})
	v.SetDefault("service.analytics_workload", false)

	// Bind environment variables with QF_ prefix
	v.SetEnvPrefix("QF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: reject secrets in config files
	// Secrets must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		DatabaseURL:             v.GetString("service.database_url"),
		MaxTreeDepth:            v.GetInt("service.max_tree_depth"),
		MaxConditions:           v.GetInt("service.max_conditions"),
		CacheSize:               v.GetInt("service.cache_size"),
		CacheTTL:                v.GetDuration("service.cache_ttl"),
		BreakerFailureThreshold: v.GetInt("service.breaker_failure_threshold"),
		BreakerSuccessThreshold: v.GetInt("service.breaker_success_threshold"),
		BreakerRecoveryTimeout:  v.GetDuration("service.breaker_recovery_timeout"),
		AllowedFields:           v.GetStringSlice("service.allowed_fields"),
		AllowedTables:           v.GetStringSlice("service.allowed_tables"),
		AnalyticsWorkload:       v.GetBool("service.analytics_workload"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks positive values for limits, cache sizing, and
// breaker thresholds.
func validateConfig(cfg *ServiceConfig) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database_url must not be empty")
	}
	if cfg.MaxTreeDepth <= 0 {
		return fmt.Errorf("max_tree_depth must be positive, got %d", cfg.MaxTreeDepth)
	}
	if cfg.MaxConditions <= 0 {
		return fmt.Errorf("max_conditions must be positive, got %d", cfg.MaxConditions)
	}
	if cfg.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", cfg.CacheSize)
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive, got %v", cfg.CacheTTL)
	}
	if cfg.BreakerFailureThreshold <= 0 {
		return fmt.Errorf("breaker_failure_threshold must be positive, got %d", cfg.BreakerFailureThreshold)
	}
	if cfg.BreakerSuccessThreshold <= 0 {
		return fmt.Errorf("breaker_success_threshold must be positive, got %d", cfg.BreakerSuccessThreshold)
	}
	if cfg.BreakerRecoveryTimeout <= 0 {
		return fmt.Errorf("breaker_recovery_timeout must be positive, got %v", cfg.BreakerRecoveryTimeout)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("share_secret") || v.IsSet("service.share_secret") {
		return fmt.Errorf("share secrets not allowed in config files (use QF_SHARE_SECRET environment variable)")
	}
	return nil
}
