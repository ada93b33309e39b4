package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	OpenMeteo OpenMeteoConfig `mapstructure:"openmeteo"`
	Search    SearchConfig    `mapstructure:"search"`
	Session   SessionConfig   `mapstructure:"session"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type OpenMeteoConfig struct {
	GeoURL      string        `mapstructure:"geo_url"`
	ForecastURL string        `mapstructure:"forecast_url"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SearchConfig controls the debounced suggestion fetch and the display limits.
type SearchConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	MinQueryLength int           `mapstructure:"min_query_length"`
	ResultCount    int           `mapstructure:"result_count"`
	Language       string        `mapstructure:"language"`
	HourlyLimit    int           `mapstructure:"hourly_limit"`
}

type SessionConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	GeocodeTTL  time.Duration `mapstructure:"geocode_ttl"`
	ForecastTTL time.Duration `mapstructure:"forecast_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	v.SetConfigName("weathernow")
	v.SetConfigType("yaml")

	// First found wins
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	v.AddConfigPath("$HOME/.config")
	v.AddConfigPath("/etc")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("server.port", "SERVER_PORT")

	_ = v.BindEnv("openmeteo.geo_url", "OPENMETEO_GEO_URL")
	_ = v.BindEnv("openmeteo.forecast_url", "OPENMETEO_FORECAST_URL")
	_ = v.BindEnv("openmeteo.user_agent", "OPENMETEO_USER_AGENT")

	_ = v.BindEnv("search.debounce", "SEARCH_DEBOUNCE")
	_ = v.BindEnv("search.language", "SEARCH_LANGUAGE")

	_ = v.BindEnv("redis.enabled", "REDIS_ENABLED")
	_ = v.BindEnv("redis.host", "REDIS_HOST")
	_ = v.BindEnv("redis.port", "REDIS_PORT")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")

	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	// SSE streams stay open, so writes are not bounded by default
	v.SetDefault("server.write_timeout", 0)

	v.SetDefault("openmeteo.geo_url", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("openmeteo.forecast_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("openmeteo.user_agent", "WeatherNow/1.0")
	v.SetDefault("openmeteo.timeout", 10*time.Second)

	v.SetDefault("search.debounce", 400*time.Millisecond)
	v.SetDefault("search.min_query_length", 2)
	v.SetDefault("search.result_count", 5)
	v.SetDefault("search.language", "en")
	v.SetDefault("search.hourly_limit", 12)

	v.SetDefault("session.idle_ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", 5*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.geocode_ttl", 24*time.Hour)
	v.SetDefault("redis.forecast_ttl", 10*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
}

// Validate checks the values the search flow depends on.
func (c *Config) Validate() error {
	if c.OpenMeteo.GeoURL == "" {
		return fmt.Errorf("openmeteo.geo_url must not be empty")
	}
	if c.OpenMeteo.ForecastURL == "" {
		return fmt.Errorf("openmeteo.forecast_url must not be empty")
	}
	if c.Search.Debounce <= 0 {
		return fmt.Errorf("search.debounce must be positive, got %s", c.Search.Debounce)
	}
	if c.Search.MinQueryLength < 1 {
		return fmt.Errorf("search.min_query_length must be at least 1, got %d", c.Search.MinQueryLength)
	}
	if c.Search.ResultCount < 1 || c.Search.ResultCount > 100 {
		return fmt.Errorf("search.result_count must be between 1 and 100, got %d", c.Search.ResultCount)
	}
	if c.Search.HourlyLimit < 0 {
		return fmt.Errorf("search.hourly_limit must not be negative, got %d", c.Search.HourlyLimit)
	}
	return nil
}
