package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIBaseURL  string `mapstructure:"api_base_url"`
	AppAPIToken string `mapstructure:"app_api_token"`

	HTTPTimeoutMs        int64   `mapstructure:"http_timeout_ms"`
	HTTPConnectTimeoutMs int64   `mapstructure:"http_connect_timeout_ms"`
	HTTPReadTimeoutMs    int64   `mapstructure:"http_read_timeout_ms"`
	HTTPRetries          int     `mapstructure:"http_retries"`
	HTTPBackoffMs        int64   `mapstructure:"http_backoff_ms"`
	HTTPMaxBackoffMs     int64   `mapstructure:"http_max_backoff_ms"`
	HTTPRatePerSecond    float64 `mapstructure:"http_rate_per_second"`
	HTTPProxy            string  `mapstructure:"http_proxy"`

	HTTPTimeout        time.Duration `mapstructure:"-"`
	HTTPConnectTimeout time.Duration `mapstructure:"-"`
	HTTPReadTimeout    time.Duration `mapstructure:"-"`
	HTTPBackoff        time.Duration `mapstructure:"-"`
	HTTPMaxBackoff     time.Duration `mapstructure:"-"`

	DeviceLang       string `mapstructure:"device_lang"`
	DeviceAppVersion string `mapstructure:"device_app_version"`
	DeviceUserAgent  string `mapstructure:"device_user_agent"`
	DeviceOS         string `mapstructure:"device_os"`
	DeviceOSVersion  string `mapstructure:"device_os_version"`

	QueriesFile         string        `mapstructure:"queries_file"`
	PublishersFile      string        `mapstructure:"publishers_file"`
	PollIntervalSeconds int64         `mapstructure:"poll_interval"`
	PollInterval        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	RedisURL               string        `mapstructure:"redis_url"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "tabletki-watch")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("api_base_url", "https://app.tabletki.ua/api/app/v1")
	v.SetDefault("app_api_token", "")

	v.SetDefault("http_timeout_ms", 15000)
	v.SetDefault("http_connect_timeout_ms", 0)
	v.SetDefault("http_read_timeout_ms", 0)
	v.SetDefault("http_retries", 3)
	v.SetDefault("http_backoff_ms", 500)
	v.SetDefault("http_max_backoff_ms", 8000)
	v.SetDefault("http_rate_per_second", 0)
	v.SetDefault("http_proxy", "")

	v.SetDefault("device_lang", "uk")
	v.SetDefault("device_app_version", "")
	v.SetDefault("device_user_agent", "")
	v.SetDefault("device_os", "")
	v.SetDefault("device_os_version", "")

	v.SetDefault("queries_file", "./configs/queries.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("poll_interval", 3600) // seconds

	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/state.db")
	v.SetDefault("redis_url", "")
	v.SetDefault("storage_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((6*time.Hour)/time.Second))
}

// finalize validates numeric settings and derives the duration fields.
func (cfg *Config) finalize() error {
	cfg.AppAPIToken = strings.TrimSpace(cfg.AppAPIToken)
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return fmt.Errorf("api_base_url must not be empty")
	}

	if cfg.HTTPTimeoutMs <= 0 {
		return fmt.Errorf("invalid http_timeout_ms (must be positive milliseconds)")
	}
	if cfg.HTTPConnectTimeoutMs < 0 || cfg.HTTPReadTimeoutMs < 0 {
		return fmt.Errorf("invalid http connect/read timeout (must not be negative)")
	}
	if cfg.HTTPRetries < 0 {
		return fmt.Errorf("invalid http_retries (must not be negative)")
	}
	if cfg.HTTPBackoffMs <= 0 || cfg.HTTPMaxBackoffMs < cfg.HTTPBackoffMs {
		return fmt.Errorf("invalid http backoff (need 0 < http_backoff_ms <= http_max_backoff_ms)")
	}
	if cfg.HTTPRatePerSecond < 0 {
		return fmt.Errorf("invalid http_rate_per_second (must not be negative)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond
	cfg.HTTPConnectTimeout = time.Duration(cfg.HTTPConnectTimeoutMs) * time.Millisecond
	cfg.HTTPReadTimeout = time.Duration(cfg.HTTPReadTimeoutMs) * time.Millisecond
	cfg.HTTPBackoff = time.Duration(cfg.HTTPBackoffMs) * time.Millisecond
	cfg.HTTPMaxBackoff = time.Duration(cfg.HTTPMaxBackoffMs) * time.Millisecond

	if cfg.PollIntervalSeconds <= 0 {
		return fmt.Errorf("invalid poll_interval (must be positive seconds)")
	}
	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}
