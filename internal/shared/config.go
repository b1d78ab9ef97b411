package shared

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	HotelsAPIBase       string
	HotelsAPIKey        string
	HotelsAPIRPS        int
	HotelsAPITimeout    time.Duration
	UpstreamConcurrency int

	StateBackend string // memory|redis
	StateTTL     time.Duration
	RedisAddr    string
	RedisDB      int
	RedisPass    string

	MySQLDSN    string // empty disables the search audit log
	RenderGrace time.Duration
}

// Load reads config.yaml (optional, from . or ./config) and the environment.
// Environment variables win over the file.
func Load() Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "prod")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", "")
	v.SetDefault("HOTELS_API_BASE", "http://localhost:3001")
	v.SetDefault("HOTELS_API_KEY", "")
	v.SetDefault("HOTELS_API_RPS", 20)
	v.SetDefault("HOTELS_API_TIMEOUT_SECONDS", 10)
	v.SetDefault("UPSTREAM_CONCURRENCY", 16)
	v.SetDefault("STATE_BACKEND", "memory")
	v.SetDefault("STATE_TTL_SECONDS", 1800)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("MYSQL_DSN", "")
	v.SetDefault("RENDER_GRACE_MS", 300)

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			log.Warn().Err(err).Msg("config file unreadable; using environment only")
		}
	}

	c := Config{
		AppEnv:              v.GetString("APP_ENV"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		HTTPAddr:            v.GetString("HTTP_ADDR"),
		MetricsAddr:         v.GetString("METRICS_ADDR"),
		HotelsAPIBase:       v.GetString("HOTELS_API_BASE"),
		HotelsAPIKey:        v.GetString("HOTELS_API_KEY"),
		HotelsAPIRPS:        v.GetInt("HOTELS_API_RPS"),
		HotelsAPITimeout:    time.Duration(v.GetInt("HOTELS_API_TIMEOUT_SECONDS")) * time.Second,
		UpstreamConcurrency: v.GetInt("UPSTREAM_CONCURRENCY"),
		StateBackend:        strings.ToLower(v.GetString("STATE_BACKEND")),
		StateTTL:            time.Duration(v.GetInt("STATE_TTL_SECONDS")) * time.Second,
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisDB:             v.GetInt("REDIS_DB"),
		RedisPass:           v.GetString("REDIS_PASSWORD"),
		MySQLDSN:            v.GetString("MYSQL_DSN"),
		RenderGrace:         time.Duration(v.GetInt("RENDER_GRACE_MS")) * time.Millisecond,
	}
	if c.StateBackend != "memory" && c.StateBackend != "redis" {
		log.Warn().Str("backend", c.StateBackend).Msg("unknown STATE_BACKEND; using memory")
		c.StateBackend = "memory"
	}
	// a view state must outlive the longest fetch that can still settle it
	if c.StateTTL < 2*c.HotelsAPITimeout {
		log.Warn().Dur("ttl", c.StateTTL).Dur("fetch_timeout", c.HotelsAPITimeout).Msg("STATE_TTL_SECONDS too short; raising it")
		c.StateTTL = 2 * c.HotelsAPITimeout
	}
	return c
}
