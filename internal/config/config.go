// Package config provides centralized configuration management for the ingest tool.
// It loads configuration from environment variables (optionally seeded from a
// .env file) with sensible defaults and validates all settings on startup to
// fail fast on misconfiguration.
package config

import "time"

// Backend names accepted in STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Store    StoreConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Ingest   IngestConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is postgres, mongo or memory (default: postgres)
	// memory keeps nothing after the process exits and suits trial runs of a file.
	Backend string `env:"STORE_BACKEND" envDefault:"postgres"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required for the postgres backend)
	// DB_URL is accepted as a fallback for compatibility
	URL string `env:"DATABASE_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 60)
	// An import writes a full sub-batch concurrently, so keep this above INGEST_SUB_BATCH_SIZE.
	MaxConns int `env:"DB_MAX_CONNS" envDefault:"60"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" envDefault:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	// URI is the MongoDB connection string (required for the mongo backend)
	URI string `env:"MONGO_URI"`

	// Database is the database name (default: gpp)
	Database string `env:"MONGO_DATABASE" envDefault:"gpp"`
}

// IngestConfig holds import processing settings.
type IngestConfig struct {
	// SubBatchSize is the number of rows written concurrently (default: 50)
	SubBatchSize int `env:"INGEST_SUB_BATCH_SIZE" envDefault:"50"`

	// InstitutionDomain is the mail domain for derived addresses (default: gppalanpur.in)
	InstitutionDomain string `env:"INGEST_INSTITUTION_DOMAIN" envDefault:"gppalanpur.in"`

	// DefaultMaxSemester is the program length for departments without one (default: 8)
	DefaultMaxSemester int `env:"INGEST_DEFAULT_MAX_SEMESTER" envDefault:"8"`

	// AllocatorRetries bounds enrollment number re-allocation after a collision (default: 5)
	AllocatorRetries int `env:"INGEST_ALLOCATOR_RETRIES" envDefault:"5"`

	// BatchListLimit is the number of batches listed (default: 20)
	BatchListLimit int `env:"INGEST_BATCH_LIST_LIMIT" envDefault:"20"`

	// MaxFileSize is the maximum accepted file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"INGEST_MAX_FILE_SIZE" envDefault:"104857600"`

	// MaxConcurrentRuns is the maximum number of parallel runs (default: 2)
	MaxConcurrentRuns int `env:"INGEST_MAX_CONCURRENT_RUNS" envDefault:"2"`

	// MaxWait is how long a run waits for a free slot (default: 30s)
	MaxWait time.Duration `env:"INGEST_MAX_WAIT" envDefault:"30s"`

	// Timeout bounds a whole run; zero disables it (default: 10m)
	Timeout time.Duration `env:"INGEST_TIMEOUT" envDefault:"10m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// TextfilePath, when set, receives the Prometheus metrics after each command
	TextfilePath string `env:"METRICS_TEXTFILE"`
}
