package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session store backends.
const (
	BackendMemory   = "memory"
	BackendValkey   = "valkey"
	BackendPostgres = "postgres"
	BackendR2       = "r2"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	LLM     LLMConfig     `yaml:"llm"`
	Weather WeatherConfig `yaml:"weather"`
	Session SessionConfig `yaml:"session"`
	Storage StorageConfig `yaml:"storage"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware. GenerationPerMinute
// applies per session to submit and visualization calls.
type RateLimitConfig struct {
	Enabled             bool `yaml:"enabled"`
	RequestsPerMinute   int  `yaml:"requestsPerMinute"`
	Burst               int  `yaml:"burst"`
	GenerationPerMinute int  `yaml:"generationPerMinute"`
}

// LLMConfig contains Gemini settings. APIKey may be empty: the service still
// starts and reports a configuration error when generation is attempted.
type LLMConfig struct {
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseUrl"`
	TextModel      string        `yaml:"textModel"`
	ImageModel     string        `yaml:"imageModel"`
	Temperature    float32       `yaml:"temperature"`
	TextTimeout    time.Duration `yaml:"textTimeout"`
	ImageTimeout   time.Duration `yaml:"imageTimeout"`
	EstimateTokens bool          `yaml:"estimateTokens"`
}

// WeatherConfig points at the Open-Meteo endpoints.
type WeatherConfig struct {
	GeocodingURL string        `yaml:"geocodingUrl"`
	ForecastURL  string        `yaml:"forecastUrl"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SessionConfig controls orchestrator session persistence and tokens.
type SessionConfig struct {
	Secret        string         `yaml:"secret"`
	TTL           time.Duration  `yaml:"ttl"`
	Backend       string         `yaml:"backend"`
	MaxImageBytes int            `yaml:"maxImageBytes"`
	SweepInterval time.Duration  `yaml:"sweepInterval"`
	Valkey        ValkeyConfig   `yaml:"valkey"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

// ValkeyConfig contains connection information for the session cache.
type ValkeyConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// StorageConfig selects where reference photos and try-on images are kept.
type StorageConfig struct {
	Backend string   `yaml:"backend"`
	R2      R2Config `yaml:"r2"`
}

// R2Config holds S3-compatible object storage credentials.
type R2Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// Load reads configuration from a YAML file, an optional .env file and
// environment variables, in that order of precedence from lowest to highest.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	// A local .env never overrides variables already set in the process.
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_GENERATION_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.GenerationPerMinute = parsed
		}
	}
	// API_KEY is accepted for older deployments; GEMINI_API_KEY wins.
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("GEMINI_TEXT_MODEL"); v != "" {
		cfg.LLM.TextModel = v
	}
	if v := os.Getenv("GEMINI_IMAGE_MODEL"); v != "" {
		cfg.LLM.ImageModel = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("LLM_ESTIMATE_TOKENS"); v != "" {
		cfg.LLM.EstimateTokens = parseBool(v)
	}
	if v := os.Getenv("WEATHER_GEOCODING_URL"); v != "" {
		cfg.Weather.GeocodingURL = v
	}
	if v := os.Getenv("WEATHER_FORECAST_URL"); v != "" {
		cfg.Weather.ForecastURL = v
	}
	if v := os.Getenv("WEATHER_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Weather.Timeout = parsed
		}
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.TTL = parsed
		}
	}
	if v := os.Getenv("SESSION_SWEEP_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.SweepInterval = parsed
		}
	}
	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("SESSION_MAX_IMAGE_BYTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Session.MaxImageBytes = parsed
		}
	}
	if v := os.Getenv("SESSION_VALKEY_ADDR"); v != "" {
		cfg.Session.Valkey.Addr = v
	}
	if v := os.Getenv("SESSION_POSTGRES_DSN"); v != "" {
		cfg.Session.Postgres.DSN = v
	}
	if v := os.Getenv("SESSION_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Session.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("R2_ENDPOINT"); v != "" {
		cfg.Storage.R2.Endpoint = v
	}
	if v := os.Getenv("R2_ACCESS_KEY"); v != "" {
		cfg.Storage.R2.AccessKey = v
	}
	if v := os.Getenv("R2_SECRET_KEY"); v != "" {
		cfg.Storage.R2.SecretKey = v
	}
	if v := os.Getenv("R2_BUCKET"); v != "" {
		cfg.Storage.R2.Bucket = v
	}
	if v := os.Getenv("R2_REGION"); v != "" {
		cfg.Storage.R2.Region = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address: ":8080",
			// Image generation regularly takes tens of seconds.
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 150 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:             true,
				RequestsPerMinute:   30,
				Burst:               10,
				GenerationPerMinute: 6,
			},
		},
		LLM: LLMConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
			TextModel:      "gemini-2.5-flash",
			ImageModel:     "gemini-2.5-flash-image",
			Temperature:    0.7,
			TextTimeout:    60 * time.Second,
			ImageTimeout:   120 * time.Second,
			EstimateTokens: true,
		},
		Weather: WeatherConfig{
			GeocodingURL: "https://geocoding-api.open-meteo.com/v1/search",
			ForecastURL:  "https://api.open-meteo.com/v1/forecast",
			Timeout:      10 * time.Second,
		},
		Session: SessionConfig{
			TTL:           2 * time.Hour,
			Backend:       BackendMemory,
			MaxImageBytes: 8 << 20,
			SweepInterval: 5 * time.Minute,
			Valkey: ValkeyConfig{
				Prefix: "stylecast",
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.LLM.TextModel) == "" {
		return errors.New("llm.textModel cannot be empty")
	}
	if strings.TrimSpace(c.LLM.ImageModel) == "" {
		return errors.New("llm.imageModel cannot be empty")
	}
	if c.Weather.GeocodingURL == "" {
		return errors.New("weather.geocodingUrl cannot be empty")
	}
	if c.Weather.ForecastURL == "" {
		return errors.New("weather.forecastUrl cannot be empty")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.Session.MaxImageBytes <= 0 {
		return errors.New("session.maxImageBytes must be positive")
	}
	switch c.Session.Backend {
	case BackendMemory:
	case BackendValkey:
		if strings.TrimSpace(c.Session.Valkey.Addr) == "" {
			return errors.New("session.valkey.addr cannot be empty when the valkey backend is selected")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.Session.Postgres.DSN) == "" {
			return errors.New("session.postgres.dsn cannot be empty when the postgres backend is selected")
		}
	default:
		return fmt.Errorf("session.backend %q is not supported", c.Session.Backend)
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendR2:
		if strings.TrimSpace(c.Storage.R2.Endpoint) == "" || strings.TrimSpace(c.Storage.R2.Bucket) == "" {
			return errors.New("storage.r2.endpoint and storage.r2.bucket are required for the r2 backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	return nil
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
