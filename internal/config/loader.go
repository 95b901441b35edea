package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables.
//
// Each existing file in dotenv is loaded first without overriding variables
// already set in the environment. Defaults apply to unset values and the
// result is validated.
func Load(dotenv ...string) (*Config, error) {
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config load: read %s: %w", path, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DB_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Store validation
	switch strings.ToLower(c.Store.Backend) {
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required for the postgres backend")
		}
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, "MONGO_URI is required for the mongo backend")
		}
		if c.Mongo.Database == "" {
			errs = append(errs, "MONGO_DATABASE must not be empty")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND (%q) must be one of: postgres, mongo, memory", c.Store.Backend))
	}

	// Ingest validation
	if c.Ingest.SubBatchSize <= 0 {
		errs = append(errs, "INGEST_SUB_BATCH_SIZE must be positive")
	}
	if c.Ingest.DefaultMaxSemester < 1 || c.Ingest.DefaultMaxSemester > 8 {
		errs = append(errs, fmt.Sprintf("INGEST_DEFAULT_MAX_SEMESTER (%d) must be 1-8", c.Ingest.DefaultMaxSemester))
	}
	if c.Ingest.AllocatorRetries <= 0 {
		errs = append(errs, "INGEST_ALLOCATOR_RETRIES must be positive")
	}
	if c.Ingest.BatchListLimit <= 0 {
		errs = append(errs, "INGEST_BATCH_LIST_LIMIT must be positive")
	}
	if c.Ingest.MaxFileSize <= 0 {
		errs = append(errs, "INGEST_MAX_FILE_SIZE must be positive")
	}
	if c.Ingest.MaxConcurrentRuns <= 0 {
		errs = append(errs, "INGEST_MAX_CONCURRENT_RUNS must be positive")
	}
	if c.Ingest.MaxWait <= 0 {
		errs = append(errs, "INGEST_MAX_WAIT must be positive")
	}
	if c.Ingest.Timeout < 0 {
		errs = append(errs, "INGEST_TIMEOUT must be non-negative")
	}
	if strings.TrimSpace(c.Ingest.InstitutionDomain) == "" || strings.Contains(c.Ingest.InstitutionDomain, "@") {
		errs = append(errs, fmt.Sprintf("INGEST_INSTITUTION_DOMAIN (%q) must be a bare domain", c.Ingest.InstitutionDomain))
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Connection strings are reduced to their host.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Store: {Backend: %q}, ", c.Store.Backend))
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		maskURL(c.Database.URL), c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Mongo: {URI: %s, Database: %q}, ", maskURL(c.Mongo.URI), c.Mongo.Database))
	b.WriteString(fmt.Sprintf("Ingest: {SubBatchSize: %d, MaxConcurrentRuns: %d, DefaultMaxSemester: %d}, ",
		c.Ingest.SubBatchSize, c.Ingest.MaxConcurrentRuns, c.Ingest.DefaultMaxSemester))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

// maskURL keeps only the scheme and host of a connection string.
func maskURL(raw string) string {
	if raw == "" {
		return `""`
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "[MASKED]"
	}
	return u.Scheme + "://" + u.Host + "/[MASKED]"
}
