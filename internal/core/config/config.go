// Package config provides configuration management for QueryForge services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// ServiceConfig holds configuration for the query compilation service.
type ServiceConfig struct {
	DatabaseURL string

	// Builder limits applied to interactive tree mutation.
	MaxTreeDepth  int
	MaxConditions int

	// Compiled-query cache sizing.
	CacheSize int
	CacheTTL  time.Duration

	// Circuit breaker thresholds for execution targets.
	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerRecoveryTimeout  time.Duration

	// Identifier allow-lists consulted by the SQL compiler.
	AllowedFields []string
	AllowedTables []string

	// AnalyticsWorkload selects the steeper depth weight when scoring
	// complexity for analytical query surfaces.
	AnalyticsWorkload bool
}

// DefaultServiceConfig returns configuration with default values.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		DatabaseURL:             "sqlite://queryforge.db",
		MaxTreeDepth:            10,
		MaxConditions:           100,
		CacheSize:               1024,
		CacheTTL:                5 * time.Minute,
		BreakerFailureThreshold: 5,
		BreakerSuccessThreshold: 2,
		BreakerRecoveryTimeout:  30 * time.Second,
		AllowedFields:           nil,
		AllowedTables:           nil,
		AnalyticsWorkload:       false,
	}
}

// ShareSecrets extracts share-token signing secrets from environment
// variables. Supports QF_SHARE_SECRET (single) and QF_SHARE_SECRET_N
// (rotation). Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching share ID
// format.
func ShareSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	// Check single secret QF_SHARE_SECRET
	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("QF_SHARE_SECRET"); val != "" {
		secretID, decoded, err := ParseShareSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("QF_SHARE_SECRET: %w", err)
		}
		if _, exists := secrets[secretID]; exists {
			return nil, fmt.Errorf("duplicate secret_id '%s' found in environment variables (check QF_SHARE_SECRET and QF_SHARE_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
	}

	// Check numbered secrets QF_SHARE_SECRET_1, QF_SHARE_SECRET_2, etc.
	// Multiple secrets enable rotation: old and new keys valid during migration
	for i := 1; ; i++ {
		key := fmt.Sprintf("QF_SHARE_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		secretID, decoded, err := ParseShareSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return nil, fmt.Errorf("duplicate secret_id '%s' found in environment variables (check QF_SHARE_SECRET and QF_SHARE_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
	}

	return secrets, nil
}

// ParseShareSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseShareSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}

	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}

	if len(secret) < 32 {
		return "", nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	return secretID, secret, nil
}
