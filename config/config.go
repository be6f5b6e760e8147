package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
	// ServiceKeys maps caller service names to the API keys they exchange
	// for bearer tokens. Empty map disables the token endpoint.
	ServiceKeys map[string]string `mapstructure:"service_keys"`
}

// VaultConfig configures the key vault's process-wide encryption key.
// Either Key (64 hex chars) is set directly, or Passphrase + Salt are set and
// the AES-256 key is derived with argon2id at startup.
type VaultConfig struct {
	Key        string `mapstructure:"key"`
	Passphrase string `mapstructure:"passphrase"`
	Salt       string `mapstructure:"salt"`
}

// LedgerConfig configures the connection to the remote ledger network and the
// platform's treasury (operator) account.
type LedgerConfig struct {
	NodeURL            string        `mapstructure:"node_url"`
	TokenID            string        `mapstructure:"token_id"`
	TreasuryAccountID  string        `mapstructure:"treasury_account_id"`
	TreasuryPrivateKey string        `mapstructure:"treasury_private_key"` // hex ed25519 seed
	InitialBalance     int64         `mapstructure:"initial_balance"`      // native units funding new accounts
	Timeout            time.Duration `mapstructure:"timeout"`              // per RPC round trip
	MaxRetryElapsed    time.Duration `mapstructure:"max_retry_elapsed"`    // total backoff budget
}

// NotifyConfig configures the confirmed-transaction callback to the platform.
// Empty URL disables notification.
type NotifyConfig struct {
	CallbackURL string `mapstructure:"callback_url"`
	Secret      string `mapstructure:"secret"` // HMAC-SHA256 signing secret
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: SLB_ (Smiles Ledger
// Bridge). Nested keys use underscore: SLB_DATABASE_HOST, SLB_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "smiles_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("jwt.issuer", "smiles-ledger")
	v.SetDefault("vault.key", "")
	v.SetDefault("vault.passphrase", "")
	v.SetDefault("vault.salt", "")
	v.SetDefault("ledger.node_url", "http://localhost:50211")
	v.SetDefault("ledger.token_id", "")
	v.SetDefault("ledger.treasury_account_id", "")
	v.SetDefault("ledger.treasury_private_key", "")
	v.SetDefault("ledger.initial_balance", 100_000_000)
	v.SetDefault("ledger.timeout", "10s")
	v.SetDefault("ledger.max_retry_elapsed", "30s")
	v.SetDefault("notify.callback_url", "")
	v.SetDefault("notify.secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: SLB_DATABASE_HOST -> database.host
	v.SetEnvPrefix("SLB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
