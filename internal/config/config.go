package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	Cleanup   CleanupConfig
	Dispatch  DispatchConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type FirestoreConfig struct {
	MessagesCollection   string
	IdentityCollection   string
	DispatchesCollection string
}

type CleanupConfig struct {
	Enabled       bool
	RetentionDays int
	Hour          int
	BatchSize     int
}

type DispatchConfig struct {
	ListenerEnabled bool
	Concurrency     int
	Timeout         time.Duration
	CatchUp         time.Duration
	MarkerTTL       time.Duration
}

type AuthConfig struct {
	Required bool
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level string
}

// source resolves a key from the environment first and the optional YAML
// file second.
type source struct {
	file map[string]string
}

// Load reads configuration from environment variables. When CONFIG_FILE
// names a YAML file its keys supply defaults the environment overrides.
func Load() (*Config, error) {
	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		values, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            src.getEnv("PORT", "8080"),
			Env:             src.getEnv("ENV", "development"),
			ReadTimeout:     src.getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    src.getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: src.getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Firebase: FirebaseConfig{
			ProjectID:       src.getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: src.getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Firestore: FirestoreConfig{
			MessagesCollection:   src.getEnv("MESSAGES_COLLECTION", "messages"),
			IdentityCollection:   src.getEnv("IDENTITY_COLLECTION", "identity"),
			DispatchesCollection: src.getEnv("DISPATCHES_COLLECTION", "dispatches"),
		},
		Cleanup: CleanupConfig{
			Enabled:       src.getEnvBool("SCHEDULER_ENABLED", true),
			RetentionDays: src.getEnvInt("RETENTION_DAYS", 30),
			Hour:          src.getEnvInt("CLEANUP_HOUR", 0),
			BatchSize:     src.getEnvInt("CLEANUP_BATCH_SIZE", 500),
		},
		Dispatch: DispatchConfig{
			ListenerEnabled: src.getEnvBool("LISTENER_ENABLED", true),
			Concurrency:     src.getEnvInt("DISPATCH_CONCURRENCY", 8),
			Timeout:         src.getEnvDuration("DISPATCH_TIMEOUT", 30*time.Second),
			CatchUp:         src.getEnvDuration("DISPATCH_CATCH_UP", 0),
			MarkerTTL:       src.getEnvDuration("DISPATCH_MARKER_TTL", 30*24*time.Hour),
		},
		Auth: AuthConfig{
			Required: src.getEnvBool("AUTH_REQUIRED", false),
		},
		RateLimit: RateLimitConfig{
			RPS:   src.getEnvFloat("RATE_LIMIT_RPS", 10),
			Burst: src.getEnvInt("RATE_LIMIT_BURST", 20),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseCSV(src.getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Log: LogConfig{
			Level: src.getEnv("LOG_LEVEL", "debug"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Cleanup.RetentionDays <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be positive, got %d", c.Cleanup.RetentionDays)
	}
	if c.Cleanup.Hour < 0 || c.Cleanup.Hour > 23 {
		return fmt.Errorf("CLEANUP_HOUR must be between 0 and 23, got %d", c.Cleanup.Hour)
	}
	if c.Cleanup.BatchSize <= 0 || c.Cleanup.BatchSize > 500 {
		return fmt.Errorf("CLEANUP_BATCH_SIZE must be between 1 and 500, got %d", c.Cleanup.BatchSize)
	}
	if c.Dispatch.Concurrency <= 0 {
		return fmt.Errorf("DISPATCH_CONCURRENCY must be positive, got %d", c.Dispatch.Concurrency)
	}
	return nil
}

// Retention is the cleanup age threshold.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Cleanup.RetentionDays) * 24 * time.Hour
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// readFile loads a flat YAML mapping of configuration keys. Keys are matched
// case-insensitively against the environment variable names.
func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	values := make(map[string]string, len(doc))
	for k, v := range doc {
		switch t := v.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(t))
			for _, p := range t {
				parts = append(parts, fmt.Sprint(p))
			}
			values[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			values[strings.ToUpper(k)] = fmt.Sprint(t)
		}
	}
	return values, nil
}

// getEnv gets an environment variable with a fallback default
func (s source) getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if value, exists := s.file[key]; exists {
		return value
	}
	return fallback
}

func (s source) getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s.getEnv(key, "")))
	if err != nil {
		return fallback
	}
	return v
}

func (s source) getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s.getEnv(key, "")), 64)
	if err != nil {
		return fallback
	}
	return v
}

func (s source) getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s.getEnv(key, "")))
	if err != nil {
		return fallback
	}
	return v
}

func (s source) getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(s.getEnv(key, "")))
	if err != nil {
		return fallback
	}
	return v
}

// parseCSV parses a comma-separated string into a slice of strings
func parseCSV(value string) []string {
	if value == "" {
		return []string{}
	}
	var result []string
	parts := strings.Split(value, ",")
	for _, s := range parts {
		trimmed := strings.TrimSpace(s)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
