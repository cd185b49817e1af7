package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zatekoja/doctorconsole/pkg/secrets"
)

// Backend modes
const (
	BackendModeAPI      = "api"
	BackendModeDatabase = "database"
)

// Config holds all application configuration
type Config struct {
	Env      string
	Server   ServerConfig
	Clinic   ClinicConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Audio    AudioConfig
	Drafts   DraftsConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// ClinicConfig selects and configures the clinic backend
type ClinicConfig struct {
	BackendMode string
	APIBaseURL  string
	APIToken    string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AudioConfig holds audio capture configuration
type AudioConfig struct {
	// Device is "buffer" (browser-fed chunks) or "ffmpeg" (local microphone)
	Device      string
	FFmpegPath  string
	FFmpegInput string
	Format      string
	TempDir     string
}

// DraftsConfig holds consultation draft storage configuration
type DraftsConfig struct {
	// Store is "memory" or "redis"
	Store string
	TTL   time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file is read
// first when present, then secrets from Vault when VAULT_ENABLED=true.
func Load() (*Config, error) {
	if path := getEnv("ENV_FILE", ".env"); path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if _, err := secrets.Apply(context.Background(), secrets.VaultConfigFromEnv()); err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	cfg := &Config{
		Env: getEnv("ENV", "production"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "127.0.0.1"),
			Port:           getEnvAsInt("SERVER_PORT", 8085),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Clinic: ClinicConfig{
			BackendMode: getEnv("CLINIC_BACKEND_MODE", BackendModeAPI),
			APIBaseURL:  getEnv("CLINIC_API_URL", "http://localhost:8080/api"),
			APIToken:    getEnv("CLINIC_API_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "clinic"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Audio: AudioConfig{
			Device:      getEnv("AUDIO_DEVICE", "buffer"),
			FFmpegPath:  getEnv("AUDIO_FFMPEG_PATH", "ffmpeg"),
			FFmpegInput: getEnv("AUDIO_FFMPEG_INPUT", "default"),
			Format:      getEnv("AUDIO_FFMPEG_FORMAT", "pulse"),
			TempDir:     getEnv("AUDIO_TEMP_DIR", os.TempDir()),
		},
		Drafts: DraftsConfig{
			Store: getEnv("DRAFT_STORE", "memory"),
			TTL:   getEnvAsDuration("DRAFT_TTL", 24*time.Hour),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "doctor-console"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Clinic.BackendMode {
	case BackendModeAPI:
		if c.Clinic.APIBaseURL == "" {
			return fmt.Errorf("CLINIC_API_URL is required when CLINIC_BACKEND_MODE=%s", BackendModeAPI)
		}
	case BackendModeDatabase:
	default:
		return fmt.Errorf("unknown CLINIC_BACKEND_MODE %q", c.Clinic.BackendMode)
	}

	switch c.Audio.Device {
	case "buffer", "ffmpeg":
	default:
		return fmt.Errorf("unknown AUDIO_DEVICE %q", c.Audio.Device)
	}

	switch c.Drafts.Store {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("DRAFT_STORE=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("unknown DRAFT_STORE %q", c.Drafts.Store)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
