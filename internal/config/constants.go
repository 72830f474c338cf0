package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute

	// The booking database belongs to the shop; only appointment lookups and
	// the occasional start shift go there.
	BookingDBMaxOpenConns = 5
	BookingDBMaxIdleConns = 2
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for startup and health checks
const DBPingTimeout = 5 * time.Second

const DBMigrateTimeout = 2 * time.Minute

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Controller polling budget. The locker controller polls every 5 seconds.
const ControllerRateLimitPerMin = 120

// Operator login attempts per IP
const (
	LoginRateLimit       = 5
	LoginRateLimitWindow = time.Minute
)

// Operator session lifetime
const AdminSessionTTL = 24 * time.Hour
