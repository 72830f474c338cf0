package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("durations convert from env units", func(t *testing.T) {
		cfg := &Config{DoorCommandTTLSeconds: 60, ShiftHorizonHours: 24, DefaultOpeningWindowMinutes: 90}
		assert.Equal(t, 60*time.Second, cfg.DoorCommandTTL())
		assert.Equal(t, 24*time.Hour, cfg.ShiftHorizon())
		assert.Equal(t, 90*time.Minute, cfg.DefaultOpeningWindow())
	})

	t.Run("BookingDSN falls back to DatabaseURL", func(t *testing.T) {
		cfg := &Config{DatabaseURL: "postgres://main"}
		assert.Equal(t, "postgres://main", cfg.BookingDSN())

		cfg.BookingDatabaseURL = "postgres://booking"
		assert.Equal(t, "postgres://booking", cfg.BookingDSN())
	})
}

func validConfig() *Config {
	return &Config{
		StorageDriver:               StorageDriverPostgres,
		DatabaseURL:                 "postgres://localhost/lockers",
		RedisURL:                    "redis://localhost:6379",
		ControllerAPIKey:            "controller-key",
		DoorCommandTTLSeconds:       60,
		DefaultOpeningWindowMinutes: 120,
		Timezone:                    "Europe/Oslo",
		Notifier:                    NotifierLog,
	}
}

func TestValidate(t *testing.T) {
	t.Run("accepts valid development config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate(false))
	})

	t.Run("postgres driver requires DATABASE_URL", func(t *testing.T) {
		cfg := validConfig()
		cfg.DatabaseURL = ""
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("memory driver rejected in production", func(t *testing.T) {
		cfg := validConfig()
		cfg.StorageDriver = StorageDriverMemory
		assert.NoError(t, cfg.Validate(false))
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("rejects unknown notifier", func(t *testing.T) {
		cfg := validConfig()
		cfg.Notifier = "smtp"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects unknown timezone", func(t *testing.T) {
		cfg := validConfig()
		cfg.Timezone = "Mars/Olympus"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects non-bcrypt password hash", func(t *testing.T) {
		cfg := validConfig()
		cfg.AdminPasswordHash = "plaintext"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("production requires strong secrets", func(t *testing.T) {
		cfg := validConfig()
		cfg.AdminSessionSecret = "short"
		assert.Error(t, cfg.Validate(true))

		cfg.AdminSessionSecret = "0123456789abcdef0123456789abcdef"
		cfg.ControllerAPIKey = "0123456789abcdef0123456789abcdef"
		assert.NoError(t, cfg.Validate(true))
	})
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "STORAGE_DRIVER", "DATABASE_URL", "REDIS_URL", "CONTROLLER_API_KEY",
		"DOOR_COMMAND_TTL_SECONDS", "TIMEZONE", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS",
	}
	originalEnv := map[string]string{}
	for _, k := range keys {
		originalEnv[k] = os.Getenv(k)
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("CONTROLLER_API_KEY", "key")
		os.Unsetenv("PORT")
		os.Unsetenv("STORAGE_DRIVER")
		os.Unsetenv("DOOR_COMMAND_TTL_SECONDS")
		os.Unsetenv("TIMEZONE")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("CORS_ALLOWED_ORIGINS")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
		assert.Equal(t, 60, cfg.DoorCommandTTLSeconds)
		assert.Equal(t, "Europe/Oslo", cfg.Timezone)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("CONTROLLER_API_KEY", "key")
		os.Setenv("PORT", "3000")
		os.Setenv("DOOR_COMMAND_TTL_SECONDS", "30")
		os.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example,https://www.shop.example")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 30, cfg.DoorCommandTTLSeconds)
		assert.Equal(t, []string{"https://shop.example", "https://www.shop.example"}, cfg.CORSAllowedOrigins)
	})

	t.Run("fails without required REDIS_URL", func(t *testing.T) {
		os.Setenv("CONTROLLER_API_KEY", "key")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required CONTROLLER_API_KEY", func(t *testing.T) {
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("CONTROLLER_API_KEY")

		_, err := Load()
		assert.Error(t, err)
	})
}
