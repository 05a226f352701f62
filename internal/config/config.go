// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.parley/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Model: provider selection, model name, generation parameters
//   - Turn: agentic loop limits and timeouts
//   - Storage: checkpoint backend selection and PostgreSQL connection (see storage.go)
//   - Tools: external API endpoints and timeouts
//   - Serve: listen address, CORS, proxy trust
//
// Security: sensitive values (passwords, API keys) are masked in MarshalJSON
// and String. Validation uses sentinel errors for errors.Is checks.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidProvider indicates the model provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxRounds indicates the max rounds value is out of range.
	ErrInvalidMaxRounds = errors.New("invalid max rounds")

	// ErrInvalidStorageBackend indicates an unknown checkpoint storage backend.
	ErrInvalidStorageBackend = errors.New("invalid storage backend")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidTimeout indicates a timeout value is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// Model provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// Checkpoint storage backend identifiers used in Config.StorageBackend.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// ToolsConfig holds external tool API configuration.
// Base URLs are overridable so tests can point tools at local servers.
type ToolsConfig struct {
	TimeoutMs       int    `mapstructure:"timeout_ms" json:"timeout_ms"`
	GeocodingURL    string `mapstructure:"geocoding_url" json:"geocoding_url"`
	ForecastURL     string `mapstructure:"forecast_url" json:"forecast_url"`
	ExchangeRateURL string `mapstructure:"exchange_rate_url" json:"exchange_rate_url"`
	CryptoURL       string `mapstructure:"crypto_url" json:"crypto_url"`
	HolidaysURL     string `mapstructure:"holidays_url" json:"holidays_url"`
	JokeURL         string `mapstructure:"joke_url" json:"joke_url"`
	StockURL        string `mapstructure:"stock_url" json:"stock_url"`
	StockAPIKey     string `mapstructure:"stock_api_key" json:"stock_api_key"` // SENSITIVE: masked in MarshalJSON
	SearchURL       string `mapstructure:"search_url" json:"search_url"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// Model provider and generation configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "gemini" (default), "ollama", "openai"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Turn orchestration configuration
	MaxRounds     int `mapstructure:"max_rounds" json:"max_rounds"`           // model/tool round cap per turn
	TurnTimeoutMs int `mapstructure:"turn_timeout_ms" json:"turn_timeout_ms"` // wall-clock limit per turn

	// Checkpoint storage configuration (see storage.go)
	StorageBackend   string `mapstructure:"storage_backend" json:"storage_backend"` // "memory" (default) or "postgres"
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Tool configuration
	Tools ToolsConfig `mapstructure:"tools" json:"tools"`

	// Serve configuration
	Host        string   `mapstructure:"host" json:"host"`
	Port        int      `mapstructure:"port" json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For (behind reverse proxy)

	// Logging configuration
	LogLevel  string `mapstructure:"log_level" json:"log_level"`   // "debug", "info", "warn", "error"
	LogFormat string `mapstructure:"log_format" json:"log_format"` // "text", "json", "pretty"
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".parley")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL takes precedence over individual postgres_* settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Model defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Turn defaults
	viper.SetDefault("max_rounds", 8)
	viper.SetDefault("turn_timeout_ms", 300_000)

	// Storage defaults: in-memory keeps the zero-dependency quick start
	viper.SetDefault("storage_backend", StorageMemory)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "parley")
	viper.SetDefault("postgres_password", "parley_dev_password")
	viper.SetDefault("postgres_db_name", "parley")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Tool endpoint defaults
	viper.SetDefault("tools.timeout_ms", 12_000)
	viper.SetDefault("tools.geocoding_url", "https://geocoding-api.open-meteo.com/v1/search")
	viper.SetDefault("tools.forecast_url", "https://api.open-meteo.com/v1/forecast")
	viper.SetDefault("tools.exchange_rate_url", "https://api.frankfurter.dev/v1/latest")
	viper.SetDefault("tools.crypto_url", "https://api.coinbase.com/v2/prices")
	viper.SetDefault("tools.holidays_url", "https://date.nager.at/api/v3/PublicHolidays")
	viper.SetDefault("tools.joke_url", "https://v2.jokeapi.dev/joke")
	viper.SetDefault("tools.stock_url", "https://www.alphavantage.co/query")
	viper.SetDefault("tools.search_url", "http://localhost:8888")

	// Serve defaults
	viper.SetDefault("host", "127.0.0.1")
	viper.SetDefault("port", 8000)
	viper.SetDefault("cors_origins", []string{"http://localhost:5173"})
	viper.SetDefault("trust_proxy", false)

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
}

// bindEnvVariables binds environment variable overrides explicitly.
// Model provider API keys (GEMINI_API_KEY, OPENAI_API_KEY) are read
// directly by the Genkit plugins, not via Viper; Validate only checks
// their presence for the selected provider.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a failure here is a bug
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "PARLEY_PROVIDER")
	mustBind("model_name", "PARLEY_MODEL_NAME")
	mustBind("ollama_host", "PARLEY_OLLAMA_HOST")

	mustBind("storage_backend", "PARLEY_STORAGE_BACKEND")

	mustBind("host", "PARLEY_HOST")
	mustBind("port", "PARLEY_PORT")
	mustBind("cors_origins", "PARLEY_CORS_ORIGINS")
	mustBind("trust_proxy", "PARLEY_TRUST_PROXY")

	mustBind("log_level", "PARLEY_LOG_LEVEL")
	mustBind("log_format", "PARLEY_LOG_FORMAT")

	// Stock quotes need an AlphaVantage key; without it the tool
	// reports a configuration error instead of quotes.
	mustBind("tools.stock_api_key", "ALPHAVANTAGE_API_KEY")
	mustBind("tools.search_url", "PARLEY_SEARCH_URL")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matching against real secret characters.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked to prevent
// substring matching; longer secrets keep the first and last 2
// characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - Tools.StockAPIKey
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.Tools.StockAPIKey = maskSecret(a.Tools.StockAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

// Addr returns the serve listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
