package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Cron     CronConfig     `mapstructure:"cron"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Facts    FactsConfig    `mapstructure:"facts"`
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
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	FlushStore   string        `mapstructure:"flush_store"`
	PruneLog     string        `mapstructure:"prune_log"`
	LogRetention time.Duration `mapstructure:"log_retention"`
}

type EngineConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

type IngestConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	URL        string        `mapstructure:"url"`
	BackoffMin time.Duration `mapstructure:"backoff_min"`
	BackoffMax time.Duration `mapstructure:"backoff_max"`
}

type ExecutorConfig struct {
	FillDelay time.Duration `mapstructure:"fill_delay"`
	// Balances keys are wallet addresses, values SOL balances; used by the
	// paper setup in place of an RPC balance lookup.
	Balances map[string]float64 `mapstructure:"balances"`
}

type FactsConfig struct {
	MaxWindowMin int `mapstructure:"max_window_min"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AT")
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
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.flush_store", "@every 30s")
	v.SetDefault("cron.prune_log", "@every 1h")
	v.SetDefault("cron.log_retention", "168h")
	v.SetDefault("engine.queue_size", 1024)
	v.SetDefault("ingest.enabled", false)
	v.SetDefault("ingest.url", "")
	v.SetDefault("ingest.backoff_min", "1s")
	v.SetDefault("ingest.backoff_max", "30s")
	v.SetDefault("executor.fill_delay", "50ms")
	v.SetDefault("facts.max_window_min", 1440)

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
