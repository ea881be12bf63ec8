package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. GREENAPI_SERVER_PORT.
const EnvPrefix = "GREENAPI"

type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	CORS     CORSConfig     `mapstructure:"cors" validate:"required"`
	GreenAPI GreenAPIConfig `mapstructure:"green_api" validate:"required"`
	Logging  LoggingConfig  `mapstructure:"logging" validate:"required"`
	Console  ConsoleConfig  `mapstructure:"console" validate:"required"`
}

type ServerConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds     int    `mapstructure:"read_timeout_seconds" validate:"required,min=1"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds" validate:"required,min=1"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"required,min=1"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"required,min=1,dive,required"`
}

type GreenAPIConfig struct {
	BaseURL        string               `mapstructure:"base_url" validate:"required,url"`
	TimeoutSeconds int                  `mapstructure:"timeout_seconds" validate:"required,min=1"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker" validate:"required"`
}

type CircuitBreakerConfig struct {
	Name                string  `mapstructure:"name" validate:"required"`
	ConsecutiveFailures uint32  `mapstructure:"consecutive_failures" validate:"required,min=1,max=50"`
	HalfOpenMaxRequests uint32  `mapstructure:"half_open_max_requests" validate:"required,min=1,max=20"`
	OpenTimeoutSeconds  int     `mapstructure:"open_timeout_seconds" validate:"required,min=1,max=300"`
	IntervalSeconds     int     `mapstructure:"interval_seconds" validate:"required,min=1,max=300"`
	FailureRatio        float64 `mapstructure:"failure_ratio" validate:"required,gt=0,lte=1"`
	MinRequests         uint32  `mapstructure:"min_requests" validate:"required,min=1,max=200"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
}

// ConsoleConfig configures the terminal form controller.
type ConsoleConfig struct {
	APIBase string `mapstructure:"api_base" validate:"required,url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:8080"})

	v.SetDefault("green_api.base_url", "https://api.green-api.com")
	v.SetDefault("green_api.timeout_seconds", 15)
	v.SetDefault("green_api.circuit_breaker.name", "green-api")
	v.SetDefault("green_api.circuit_breaker.consecutive_failures", 5)
	v.SetDefault("green_api.circuit_breaker.half_open_max_requests", 1)
	v.SetDefault("green_api.circuit_breaker.open_timeout_seconds", 30)
	v.SetDefault("green_api.circuit_breaker.interval_seconds", 60)
	v.SetDefault("green_api.circuit_breaker.failure_ratio", 0.5)
	v.SetDefault("green_api.circuit_breaker.min_requests", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 10)
	v.SetDefault("logging.max_age_days", 30)

	v.SetDefault("console.api_base", "http://localhost:8080/api/v1")
}

// Load reads defaults, the optional YAML file at path and GREENAPI_* environment
// overrides, then validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags; callers re-run it after applying flag overrides.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

func (g GreenAPIConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func (c CircuitBreakerConfig) OpenTimeout() time.Duration {
	return time.Duration(c.OpenTimeoutSeconds) * time.Second
}

func (c CircuitBreakerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
