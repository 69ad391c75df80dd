package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. WALLETLAB_LOGGING_LEVEL.
const EnvPrefix = "WALLETLAB"

// Config is the complete runtime configuration.
// Every component receives the section it needs at construction.
type Config struct {
	Logging      LoggingConfig      `mapstructure:"logging"`
	Session      SessionConfig      `mapstructure:"session"`
	Ingestion    IngestionConfig    `mapstructure:"ingestion"`
	Enrichment   EnrichmentConfig   `mapstructure:"enrichment"`
	Coordination CoordinationConfig `mapstructure:"coordination"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Providers    ProvidersConfig    `mapstructure:"providers"`
	Slots        []SlotCredentials  `mapstructure:"slots" validate:"dive"`
	Server       ServerConfig       `mapstructure:"server"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Dir   string `mapstructure:"dir" validate:"required"` // per-session log files
}

// SessionConfig bounds a single session.
type SessionConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	KillGrace    time.Duration `mapstructure:"kill_grace" validate:"gte=0"`
	IngestBudget time.Duration `mapstructure:"ingest_budget" validate:"gt=0"`
	MaxTransfers int           `mapstructure:"max_transfers" validate:"gt=0"`
	RetainRows   int           `mapstructure:"retain_rows" validate:"gt=0"`
	DataDir      string        `mapstructure:"data_dir" validate:"required"`
}

// IngestionConfig controls paginated transfer retrieval.
type IngestionConfig struct {
	PageSize          int           `mapstructure:"page_size" validate:"gt=0,lte=1000"`
	SubBatchSize      int           `mapstructure:"sub_batch_size" validate:"gt=0"`
	SubBatchDelay     time.Duration `mapstructure:"sub_batch_delay" validate:"gte=0"`
	SentinelAddresses []string      `mapstructure:"sentinel_addresses"`
}

// EnrichmentConfig controls metadata and price resolution.
type EnrichmentConfig struct {
	MetadataBatchSize  int           `mapstructure:"metadata_batch_size" validate:"gt=0"`
	MetadataBatchDelay time.Duration `mapstructure:"metadata_batch_delay" validate:"gte=0"`
	PriceBucket        time.Duration `mapstructure:"price_bucket" validate:"gt=0"`
	PriceWindow        time.Duration `mapstructure:"price_window" validate:"gt=0"`
	PriceCallDelay     time.Duration `mapstructure:"price_call_delay" validate:"gte=0"`
	AssumedTotalSupply float64       `mapstructure:"assumed_total_supply" validate:"gt=0"`
	PriceCacheEnabled  bool          `mapstructure:"price_cache_enabled"`
}

// CoordinationConfig selects the shared slot/wallet backend.
type CoordinationConfig struct {
	Backend  string        `mapstructure:"backend" validate:"oneof=memory postgres redis"`
	LockWait time.Duration `mapstructure:"lock_wait" validate:"gt=0"`
	SlotIDs  []string      `mapstructure:"slot_ids" validate:"min=1,dive,required"`
}

// StorageConfig holds connection strings for shared stores.
type StorageConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
}

// ProvidersConfig holds upstream base URLs.
type ProvidersConfig struct {
	SolanaFMURL string        `mapstructure:"solanafm_url" validate:"required,url"`
	RaydiumURL  string        `mapstructure:"raydium_url" validate:"required,url"`
	BirdeyeURL  string        `mapstructure:"birdeye_url" validate:"required,url"`
	RPCURL      string        `mapstructure:"rpc_url" validate:"omitempty,url"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// SlotCredentials binds a slot id to its rate-limited API keys.
type SlotCredentials struct {
	ID          string `mapstructure:"id" validate:"required"`
	SolanaFMKey string `mapstructure:"solanafm_key"`
	BirdeyeKey  string `mapstructure:"birdeye_key"`
}

// ServerConfig configures the request API.
type ServerConfig struct {
	Addr       string `mapstructure:"addr" validate:"required"`
	Executable string `mapstructure:"executable"` // worker binary, defaults to self
	ConfigPath string `mapstructure:"config_path"`
}

// MetricsConfig controls Prometheus export.
type MetricsConfig struct {
	Namespace      string `mapstructure:"namespace"`
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"` // worker push target
}

// Load reads configuration from path (optional) and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if path != "" && cfg.Server.ConfigPath == "" {
		cfg.Server.ConfigPath = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dir", "./logs")

	v.SetDefault("session.timeout", "10m")
	v.SetDefault("session.kill_grace", "15s")
	v.SetDefault("session.ingest_budget", "4m")
	v.SetDefault("session.max_transfers", 1000)
	v.SetDefault("session.retain_rows", 50)
	v.SetDefault("session.data_dir", "./data")

	v.SetDefault("ingestion.page_size", 1000)
	v.SetDefault("ingestion.sub_batch_size", 100)
	v.SetDefault("ingestion.sub_batch_delay", "1s")
	v.SetDefault("ingestion.sentinel_addresses", DefaultSentinelAddresses)

	v.SetDefault("enrichment.metadata_batch_size", 20)
	v.SetDefault("enrichment.metadata_batch_delay", "0s")
	v.SetDefault("enrichment.price_bucket", "10s")
	v.SetDefault("enrichment.price_window", "5m")
	v.SetDefault("enrichment.price_call_delay", "1s")
	v.SetDefault("enrichment.assumed_total_supply", 1_000_000_000)
	v.SetDefault("enrichment.price_cache_enabled", false)

	v.SetDefault("coordination.backend", "memory")
	v.SetDefault("coordination.lock_wait", "3s")
	v.SetDefault("coordination.slot_ids", DefaultSlotIDs)

	v.SetDefault("providers.solanafm_url", "https://api.solana.fm")
	v.SetDefault("providers.raydium_url", "https://api-v3.raydium.io")
	v.SetDefault("providers.birdeye_url", "https://public-api.birdeye.so")
	v.SetDefault("providers.rpc_url", "")
	v.SetDefault("providers.timeout", "30s")

	// Empty defaults make these keys visible to AutomaticEnv during Unmarshal.
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.redis_addr", "")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.clickhouse_dsn", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.executable", "")
	v.SetDefault("server.config_path", "")

	v.SetDefault("metrics.namespace", "wallet_lab")
	v.SetDefault("metrics.pushgateway_url", "")
}

// DefaultSlotIDs is the slot pool provisioned on first use.
var DefaultSlotIDs = []string{"bot1", "bot2", "bot3"} //nolint:gochecknoglobals

// DefaultSentinelAddresses are burn/mint placeholders never counted as trades.
var DefaultSentinelAddresses = []string{ //nolint:gochecknoglobals
	"11111111111111111111111111111111",
	"1nc1nerator11111111111111111111111111111111",
}

var validate = validator.New() //nolint:gochecknoglobals

// Validate checks the decoded configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Coordination.Backend {
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("invalid config: storage.postgres_dsn is required for postgres coordination")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("invalid config: storage.redis_addr is required for redis coordination")
		}
	}
	if c.Enrichment.PriceCacheEnabled && c.Storage.ClickHouseDSN == "" {
		return fmt.Errorf("invalid config: storage.clickhouse_dsn is required when the price cache is enabled")
	}
	return nil
}

// SlotCredential returns the credentials bound to slotID.
// A slot with no configured entry gets empty keys.
func (c *Config) SlotCredential(slotID string) SlotCredentials {
	for _, s := range c.Slots {
		if s.ID == slotID {
			return s
		}
	}
	return SlotCredentials{ID: slotID}
}
