package config

import (
	"fmt"
	"os"
	"strings"
)

// validSSLModes are the PostgreSQL sslmode values accepted by pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the configuration for correctness (fail-fast at startup).
// Errors wrap the package sentinel errors for errors.Is checks.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderOllama:
		if !strings.HasPrefix(c.OllamaHost, "http://") && !strings.HasPrefix(c.OllamaHost, "https://") {
			return fmt.Errorf("%w: %q must start with http:// or https://", ErrInvalidOllamaHost, c.OllamaHost)
		}
	default:
		return fmt.Errorf("%w: %q (expected gemini, ollama, or openai)", ErrInvalidProvider, c.Provider)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %.2f (expected 0.0-2.0)", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxRounds < 1 || c.MaxRounds > 64 {
		return fmt.Errorf("%w: %d (expected 1-64)", ErrInvalidMaxRounds, c.MaxRounds)
	}

	if c.TurnTimeoutMs < 1000 {
		return fmt.Errorf("%w: turn_timeout_ms %d (expected >= 1000)", ErrInvalidTimeout, c.TurnTimeoutMs)
	}
	if c.Tools.TimeoutMs < 100 {
		return fmt.Errorf("%w: tools.timeout_ms %d (expected >= 100)", ErrInvalidTimeout, c.Tools.TimeoutMs)
	}

	switch c.StorageBackend {
	case StorageMemory:
		// History lives in process memory; nothing further to check.
	case StoragePostgres:
		if strings.TrimSpace(c.PostgresHost) == "" {
			return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: %d (expected 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
		}
		if strings.TrimSpace(c.PostgresDBName) == "" {
			return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
		}
		if !validSSLModes[c.PostgresSSLMode] {
			return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
		}
	default:
		return fmt.Errorf("%w: %q (expected memory or postgres)", ErrInvalidStorageBackend, c.StorageBackend)
	}

	return nil
}
