package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the complete routing core configuration. Every value can
// also be overridden per call through router options; nothing here is a hard
// limit baked into the code.
type Config struct {
	Routing       RoutingConfig
	Backends      BackendsConfig
	Observability ObservabilityConfig
	Environment   string `validate:"required"`
}

// RoutingConfig holds circuit breaker and routing tunables
type RoutingConfig struct {
	// FailureThreshold is the consecutive-failure count that opens a circuit
	FailureThreshold uint32 `validate:"gte=1"`

	// ResetTimeout is how long an Open circuit blocks before a probe is allowed
	ResetTimeout time.Duration `validate:"gt=0"`

	// UseAvailabilityCache enables circuit-state filtering of candidates
	UseAvailabilityCache bool

	// PreferCheapest biases ordering toward the cheapest healthy backend
	PreferCheapest bool

	// RoutesFile optionally points at a YAML routing-table override
	RoutesFile string
}

// BackendsConfig holds per-backend system credentials and the local backend
type BackendsConfig struct {
	// SystemKeys maps backend id to the system-wide API key
	SystemKeys map[string]string

	// LocalBackend is the on-host backend id promoted by prefer-local routes
	LocalBackend string

	// LocalBaseURL is where the local backend listens
	LocalBaseURL string

	// EncryptionKey decrypts stored per-user credentials (32 bytes, hex or raw)
	EncryptionKey string
}

// ObservabilityConfig holds logging and metrics configuration
type ObservabilityConfig struct {
	LogLevel       string `validate:"required,oneof=debug info warn error"`
	LogFormat      string `validate:"required,oneof=json console"`
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load(".env")

	failureThreshold := getEnvAsInt("ROUTING_FAILURE_THRESHOLD", 3)
	if failureThreshold < 1 {
		failureThreshold = 3
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Routing: RoutingConfig{
			FailureThreshold:     uint32(failureThreshold),
			ResetTimeout:         getEnvAsDuration("ROUTING_RESET_TIMEOUT", 60*time.Second),
			UseAvailabilityCache: getEnvAsBool("ROUTING_USE_AVAILABILITY_CACHE", true),
			PreferCheapest:       getEnvAsBool("ROUTING_PREFER_CHEAPEST", false),
			RoutesFile:           getEnv("ROUTING_ROUTES_FILE", ""),
		},
		Backends: BackendsConfig{
			SystemKeys: map[string]string{
				"openai": getEnv("OPENAI_API_KEY", ""),
				"claude": getEnv("ANTHROPIC_API_KEY", ""),
				"gemini": getEnv("GEMINI_API_KEY", ""),
			},
			LocalBackend:  getEnv("LOCAL_BACKEND", "ollama"),
			LocalBaseURL:  getEnv("LOCAL_BACKEND_URL", "http://localhost:11434"),
			EncryptionKey: getEnv("CREDENTIAL_ENCRYPTION_KEY", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for structural problems
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.IsProduction() {
		hasKey := false
		for _, key := range c.Backends.SystemKeys {
			if key != "" {
				hasKey = true
				break
			}
		}
		if !hasKey && c.Backends.LocalBaseURL == "" {
			return fmt.Errorf("at least one backend must be configured in production")
		}
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
