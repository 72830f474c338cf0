package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	NotifierLog   = "log"
	NotifierRedis = "redis"
)

type Config struct {
	Port                        int      `env:"PORT" envDefault:"8080"`
	StorageDriver               string   `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL                 string   `env:"DATABASE_URL"`
	BookingDatabaseURL          string   `env:"BOOKING_DATABASE_URL"`
	RedisURL                    string   `env:"REDIS_URL,required"`
	ControllerAPIKey            string   `env:"CONTROLLER_API_KEY,required"`
	AdminPasswordHash           string   `env:"ADMIN_PASSWORD_HASH"`
	AdminSessionSecret          string   `env:"ADMIN_SESSION_SECRET"`
	DoorCommandTTLSeconds       int      `env:"DOOR_COMMAND_TTL_SECONDS" envDefault:"60"`
	ShiftHorizonHours           int      `env:"SHIFT_HORIZON_HOURS" envDefault:"24"`
	DefaultOpeningWindowMinutes int      `env:"DEFAULT_OPENING_WINDOW_MINUTES" envDefault:"120"`
	Timezone                    string   `env:"TIMEZONE" envDefault:"Europe/Oslo"`
	Notifier                    string   `env:"NOTIFIER" envDefault:"log"`
	QRBaseURL                   string   `env:"QR_BASE_URL" envDefault:"https://quickchart.io/qr?text="`
	CORSAllowedOrigins          []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	LogLevel                    string   `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) DoorCommandTTL() time.Duration {
	return time.Duration(c.DoorCommandTTLSeconds) * time.Second
}

func (c *Config) ShiftHorizon() time.Duration {
	return time.Duration(c.ShiftHorizonHours) * time.Hour
}

func (c *Config) DefaultOpeningWindow() time.Duration {
	return time.Duration(c.DefaultOpeningWindowMinutes) * time.Minute
}

// BookingDSN returns the booking store connection string, falling back to
// the main database when the booking tables live alongside ours.
func (c *Config) BookingDSN() string {
	if c.BookingDatabaseURL != "" {
		return c.BookingDatabaseURL
	}
	return c.DatabaseURL
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=%s", StorageDriverPostgres)
		}
	case StorageDriverMemory:
		if isProduction {
			return fmt.Errorf("STORAGE_DRIVER=%s is not allowed in production", StorageDriverMemory)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.Notifier != NotifierLog && c.Notifier != NotifierRedis {
		return fmt.Errorf("unknown NOTIFIER %q", c.Notifier)
	}

	if c.DoorCommandTTLSeconds < 1 {
		return fmt.Errorf("DOOR_COMMAND_TTL_SECONDS must be positive")
	}
	if c.DefaultOpeningWindowMinutes < 1 {
		return fmt.Errorf("DEFAULT_OPENING_WINDOW_MINUTES must be positive")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.AdminPasswordHash != "" {
		if !strings.HasPrefix(c.AdminPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2y$") {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if isProduction {
		if err := validateSecret("ADMIN_SESSION_SECRET", c.AdminSessionSecret); err != nil {
			return err
		}
		if err := validateSecret("CONTROLLER_API_KEY", c.ControllerAPIKey); err != nil {
			return err
		}

		if c.AdminPasswordHash == "" {
			log.Warn().Msg("ADMIN_PASSWORD_HASH is empty in production: operator dashboard disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
