package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"dustsweep/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App     AppConfig      `mapstructure:"app"`
	Logging logging.Config `mapstructure:"logging"`
	Solana  SolanaConfig   `mapstructure:"solana"`
	BNB     BNBConfig      `mapstructure:"bnb"`
	Policy  PolicyConfig   `mapstructure:"policy"`
	Sweep   SweepConfig    `mapstructure:"sweep"`
	Price   PriceConfig    `mapstructure:"price"`
	Ledger  LedgerConfig   `mapstructure:"ledger"`
	Watch   WatchConfig    `mapstructure:"watch"`
	Export  ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SolanaConfig covers rent-model chain access.
type SolanaConfig struct {
	RPCURL  string `mapstructure:"rpc_url"`
	Network string `mapstructure:"network"`
	Wallet  string `mapstructure:"wallet"`
	// OperatorKey is the base58 private key used to sign close
	// transactions. Usually injected via DUSTSWEEP_SOLANA_OPERATOR_KEY.
	OperatorKey    string        `mapstructure:"operator_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

// BNBConfig covers balance-model chain access.
type BNBConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	MultichainURL  string        `mapstructure:"multichain_url"`
	Blockchain     string        `mapstructure:"blockchain"`
	ChainID        int64         `mapstructure:"chain_id"`
	Wallet         string        `mapstructure:"wallet"`
	OperatorKey    string        `mapstructure:"operator_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

// PolicyConfig carries the dust classification thresholds.
type PolicyConfig struct {
	ProtectionEnabled bool          `mapstructure:"protection_enabled"`
	ProtectionWindow  time.Duration `mapstructure:"protection_window"`
	// WrappedNativeThreshold is the wSOL dust cutoff, in SOL.
	WrappedNativeThreshold float64 `mapstructure:"wrapped_native_threshold"`
	// USDThreshold is the balance-model dust cutoff, in USD.
	USDThreshold float64 `mapstructure:"usd_threshold"`
}

// SweepConfig governs batching and retry cadence.
type SweepConfig struct {
	BatchSize  int           `mapstructure:"batch_size"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// PriceConfig parameterises the USD quote feed.
type PriceConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	BaseURL         string        `mapstructure:"base_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// LedgerConfig selects run-history persistence.
type LedgerConfig struct {
	// Backend is either "file" or "postgres".
	Backend         string        `mapstructure:"backend"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WatchConfig governs the periodic scan-and-sweep loop.
type WatchConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DUSTSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dustsweep")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.network", "mainnet-beta")
	v.SetDefault("solana.request_timeout", "15s")
	v.SetDefault("solana.confirm_timeout", "90s")

	v.SetDefault("bnb.rpc_url", "https://bsc-dataseed.binance.org")
	v.SetDefault("bnb.multichain_url", "https://rpc.ankr.com/multichain")
	v.SetDefault("bnb.blockchain", "bsc")
	v.SetDefault("bnb.chain_id", int64(56))
	v.SetDefault("bnb.request_timeout", "15s")
	v.SetDefault("bnb.confirm_timeout", "120s")

	v.SetDefault("policy.protection_enabled", true)
	v.SetDefault("policy.protection_window", "24h")
	v.SetDefault("policy.wrapped_native_threshold", 0.001)
	v.SetDefault("policy.usd_threshold", 0.01)

	v.SetDefault("sweep.batch_size", 20)
	v.SetDefault("sweep.max_retries", 3)
	v.SetDefault("sweep.retry_delay", "2s")

	v.SetDefault("price.enabled", true)
	v.SetDefault("price.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price.refresh_interval", "30s")
	v.SetDefault("price.request_timeout", "10s")

	v.SetDefault("ledger.backend", "file")
	v.SetDefault("ledger.path", "sweep-log.json")
	v.SetDefault("ledger.max_open_conns", 10)
	v.SetDefault("ledger.max_idle_conns", 5)
	v.SetDefault("ledger.conn_max_lifetime", "30m")

	v.SetDefault("watch.interval", "1h")
	v.SetDefault("watch.startup_delay", "0s")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Sweep.BatchSize <= 0 {
		return fmt.Errorf("sweep.batch_size must be greater than zero")
	}
	if c.Sweep.MaxRetries <= 0 {
		return fmt.Errorf("sweep.max_retries must be greater than zero")
	}
	if c.Policy.WrappedNativeThreshold < 0 {
		return fmt.Errorf("policy.wrapped_native_threshold cannot be negative")
	}
	if c.Policy.USDThreshold < 0 {
		return fmt.Errorf("policy.usd_threshold cannot be negative")
	}
	if c.Policy.ProtectionEnabled && c.Policy.ProtectionWindow <= 0 {
		return fmt.Errorf("policy.protection_window 必须为正")
	}
	switch c.Ledger.Backend {
	case "file":
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path 必须配置")
		}
	case "postgres":
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn 必须配置")
		}
	default:
		return fmt.Errorf("ledger.backend must be file or postgres, got %q", c.Ledger.Backend)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
