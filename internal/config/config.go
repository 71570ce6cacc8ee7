package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Burn policies accepted by VAULT_BURN_POLICY
const (
	BurnPolicyIndependent = "independent"
	BurnPolicyAllowance   = "allowance"
)

// Config holds all configuration for the node
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Proxy     ProxyConfig
	Metrics   MetricsConfig
	Chain     ChainConfig
	Token     TokenConfig
	Vault     VaultConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int
	Host           string
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	IdleTimeout    int // seconds
	RequestTimeout int // seconds
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type     string // "sqlite" or "postgres"
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	URL string
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	Type string // "none" or "api-key"
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerMin int
	BurstSize      int
	CleanupMinutes int
}

// SecurityConfig holds request hardening settings
type SecurityConfig struct {
	MaxBodySizeKB int
}

// ProxyConfig holds trusted proxy settings for X-Forwarded-For handling
type ProxyConfig struct {
	TrustProxy     bool
	TrustedProxies []string // CIDR notation
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
}

// ChainConfig holds devnet settings
type ChainConfig struct {
	ChainID          uint64
	GenesisTimestamp int64 // unix seconds, 0 = wall clock at first start
	DevAccounts      int
	DevSeed          string
}

// TokenConfig holds defaults for token deployments
type TokenConfig struct {
	Name          string
	Symbol        string
	Decimals      int
	InitialSupply string // base units, decimal
}

// VaultConfig holds defaults for vault deployments
type VaultConfig struct {
	PeriodSeconds int64
	BurnPolicy    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 8545),
			Host:           getEnv("HOST", "127.0.0.1"),
			ReadTimeout:    getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout:   getEnvInt("SERVER_WRITE_TIMEOUT", 60),
			IdleTimeout:    getEnvInt("SERVER_IDLE_TIMEOUT", 120),
			RequestTimeout: getEnvInt("SERVER_REQUEST_TIMEOUT", 30),
		},
		Storage: StorageConfig{
			Type: getEnv("STORAGE_TYPE", "sqlite"),
			Postgres: PostgresConfig{
				URL: getEnv("DATABASE_URL", ""),
			},
			SQLite: SQLiteConfig{
				Path: getEnv("SQLITE_PATH", "./data/elkstaking.db"),
			},
		},
		Auth: AuthConfig{
			Type: getEnv("AUTH_TYPE", "none"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvBool("RATE_LIMIT_ENABLED", false),
			RequestsPerMin: getEnvInt("RATE_LIMIT_RPM", 600),
			BurstSize:      getEnvInt("RATE_LIMIT_BURST", 100),
			CleanupMinutes: getEnvInt("RATE_LIMIT_CLEANUP_MINUTES", 10),
		},
		Security: SecurityConfig{
			MaxBodySizeKB: getEnvInt("SECURITY_MAX_BODY_SIZE_KB", 256),
		},
		Proxy: ProxyConfig{
			TrustProxy:     getEnvBool("TRUST_PROXY", false),
			TrustedProxies: getEnvStringSlice("TRUSTED_PROXIES", []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
		Chain: ChainConfig{
			ChainID:          uint64(getEnvInt64("CHAIN_ID", 31337)),
			GenesisTimestamp: getEnvInt64("CHAIN_GENESIS_TIMESTAMP", 0),
			DevAccounts:      getEnvInt("CHAIN_DEV_ACCOUNTS", 10),
			DevSeed:          getEnv("CHAIN_DEV_SEED", "elkstaking devnet"),
		},
		Token: TokenConfig{
			Name:          getEnv("TOKEN_NAME", "Elk"),
			Symbol:        getEnv("TOKEN_SYMBOL", "ELK"),
			Decimals:      getEnvInt("TOKEN_DECIMALS", 18),
			InitialSupply: getEnv("TOKEN_INITIAL_SUPPLY", "1000000000000000000000000"),
		},
		Vault: VaultConfig{
			PeriodSeconds: getEnvInt64("VAULT_PERIOD_SECONDS", 31557600),
			BurnPolicy:    getEnv("VAULT_BURN_POLICY", BurnPolicyIndependent),
		},
	}

	// If DATABASE_URL is set, default to postgres
	if cfg.Storage.Postgres.URL != "" && cfg.Storage.Type == "sqlite" {
		cfg.Storage.Type = "postgres"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted away
func (c *Config) Validate() error {
	switch c.Vault.BurnPolicy {
	case BurnPolicyIndependent, BurnPolicyAllowance:
	default:
		return fmt.Errorf("invalid VAULT_BURN_POLICY %q: must be %q or %q", c.Vault.BurnPolicy, BurnPolicyIndependent, BurnPolicyAllowance)
	}
	if c.Vault.PeriodSeconds <= 0 {
		return fmt.Errorf("VAULT_PERIOD_SECONDS must be positive")
	}
	if c.Chain.ChainID == 0 {
		return fmt.Errorf("CHAIN_ID must be positive")
	}
	if c.Chain.DevAccounts < 1 {
		return fmt.Errorf("CHAIN_DEV_ACCOUNTS must be at least 1")
	}
	if c.Token.Decimals < 0 || c.Token.Decimals > 77 {
		return fmt.Errorf("TOKEN_DECIMALS out of range")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
