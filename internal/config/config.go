package config

import (
	"fmt"
	"time"
)

// Mode distinguishes production from development behavior: stricter rate
// limits, restricted origins, and suppressed error detail in production.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

func (m Mode) IsProduction() bool  { return m == ModeProduction }
func (m Mode) IsDevelopment() bool { return m == ModeDevelopment }

// Validate rejects anything but the two known deployment modes.
func (m Mode) Validate() error {
	switch m {
	case ModeDevelopment, ModeProduction:
		return nil
	}
	return fmt.Errorf("unknown deployment mode %q (want %q or %q)", m, ModeDevelopment, ModeProduction)
}

type Config struct {
	Mode      Mode            `yaml:"mode"`
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Limits    LimitsConfig    `yaml:"limits"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

// CORSConfig carries one exact-match origin allow-list per deployment mode.
// A request without an Origin header is always allowed; there is no wildcard
// matching.
type CORSConfig struct {
	DevelopmentOrigins []string      `yaml:"development_origins"`
	ProductionOrigins  []string      `yaml:"production_origins"`
	AllowMethods       []string      `yaml:"allow_methods"`
	AllowHeaders       []string      `yaml:"allow_headers"`
	MaxAge             time.Duration `yaml:"max_age"`
}

// OriginsFor returns the allow-list for the given deployment mode.
func (c CORSConfig) OriginsFor(mode Mode) []string {
	if mode.IsProduction() {
		return c.ProductionOrigins
	}
	return c.DevelopmentOrigins
}

// RateLimitConfig bounds completion requests per client within a fixed
// window, with a stricter ceiling in production.
type RateLimitConfig struct {
	Window         time.Duration `yaml:"window"`
	DevelopmentMax int64         `yaml:"development_max"`
	ProductionMax  int64         `yaml:"production_max"`
}

// MaxFor returns the per-window request ceiling for the given mode.
func (c RateLimitConfig) MaxFor(mode Mode) int64 {
	if mode.IsProduction() {
		return c.ProductionMax
	}
	return c.DevelopmentMax
}

type LimitsConfig struct {
	MaxMessageChars int   `yaml:"max_message_chars"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

func DefaultConfig() *Config {
	return &Config{
		Mode: ModeDevelopment,
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Redis: RedisConfig{
			DB:       0,
			PoolSize: 50,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
		CORS: CORSConfig{
			DevelopmentOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://127.0.0.1:3000",
			},
			ProductionOrigins: []string{},
			AllowMethods:      []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:      []string{"Content-Type", "X-Request-ID"},
			MaxAge:            time.Hour,
		},
		RateLimit: RateLimitConfig{
			Window:         15 * time.Minute,
			DevelopmentMax: 100,
			ProductionMax:  30,
		},
		Limits: LimitsConfig{
			MaxMessageChars: 5000,
			MaxBodyBytes:    64 * 1024,
		},
	}
}
