package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Selection SelectionConfig `mapstructure:"selection"`
	Cron      CronConfig      `mapstructure:"cron"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	Output            string `mapstructure:"output"`
}

// StoreConfig describes how the shared worksheet store is reached.
// DSN carries read-write credentials; ReadOnlyDSN, when set, is preferred for
// read-only sessions.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	ReadOnlyDSN     string        `mapstructure:"read_only_dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type SheetsConfig struct {
	Selected        string `mapstructure:"selected"`
	All             string `mapstructure:"all"`
	Volatility      string `mapstructure:"volatility"`
	Hyperparameters string `mapstructure:"hyperparameters"`
}

type SelectionConfig struct {
	TopN              int     `mapstructure:"top_n"`
	MinReward         float64 `mapstructure:"min_reward"`
	MaxVolatility     float64 `mapstructure:"max_volatility"`
	MaxSpread         float64 `mapstructure:"max_spread"`
	MaxMinSize        float64 `mapstructure:"max_min_size"`
	DefaultParamType  string  `mapstructure:"default_param_type"`
	DefaultMultiplier string  `mapstructure:"default_multiplier"`
}

type CronConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Selection string `mapstructure:"selection"`
	Snapshot  string `mapstructure:"snapshot"`
}

type CacheConfig struct {
	Driver    string        `mapstructure:"driver"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	Password  string        `mapstructure:"password"`
	Key       string        `mapstructure:"key"`
	TTL       time.Duration `mapstructure:"ttl"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.output", "stderr")

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.read_only_dsn", "")
	v.SetDefault("store.max_open_conns", 5)
	v.SetDefault("store.max_idle_conns", 2)
	v.SetDefault("store.conn_max_lifetime", "30m")
	v.SetDefault("store.conn_max_idle_time", "5m")
	v.SetDefault("store.timezone", "UTC")
	v.SetDefault("store.auto_migrate", true)

	v.SetDefault("sheets.selected", "Selected Markets")
	v.SetDefault("sheets.all", "All Markets")
	v.SetDefault("sheets.volatility", "Volatility Markets")
	v.SetDefault("sheets.hyperparameters", "Hyperparameters")

	v.SetDefault("selection.top_n", 5)
	v.SetDefault("selection.min_reward", 1.0)
	v.SetDefault("selection.max_volatility", 15)
	v.SetDefault("selection.max_spread", 0.15)
	v.SetDefault("selection.max_min_size", 300)
	v.SetDefault("selection.default_param_type", "mid")
	v.SetDefault("selection.default_multiplier", "1")

	v.SetDefault("cron.enabled", false)
	v.SetDefault("cron.selection", "0 0 * * * *")
	v.SetDefault("cron.snapshot", "@every 5m")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key", "marketsync:snapshot")
	v.SetDefault("cache.ttl", "10m")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
