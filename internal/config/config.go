// Package config provides configuration structures and validation for the
// application. It handles environment-based configuration for all major
// components: the cache database, the two remote systems, the sync engine,
// messaging, and the admin HTTP server.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field represents
// one subsystem's configuration and is validated during startup. The struct is
// built once and passed explicitly to every component constructor; there is no
// ambient global configuration state.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Kafka       KafkaConfig
	Source      SourceConfig
	Ledger      LedgerConfig
	Sync        SyncConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains admin HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// PostgresConfig contains cache database configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains run-report archive configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// KafkaConfig contains Kafka configuration for the document-edit event
// consumer and the run-report producer
type KafkaConfig struct {
	Brokers           string
	EditEventTopic    string // Inbound: source-side bulk edit signals
	ReportTopic       string // Outbound: per-run sync reports
	NumPartitions     int    // Number of partitions for topics
	ReplicationFactor int    // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for malformed edit events
}

// SourceConfig contains the source accounting system client configuration
type SourceConfig struct {
	BaseURL         string
	APIKey          string
	RequestInterval time.Duration // Minimum delay between requests
	BatchInterval   time.Duration // Relaxed delay during batched position fetches
	PageSize        int           // Page size for list endpoints
	RequestTimeout  time.Duration
}

// LedgerConfig contains the budget ledger client configuration
type LedgerConfig struct {
	BaseURL        string
	APIKey         string
	AccountName    string // Single target account all documents import into
	RequestTimeout time.Duration
}

// SyncConfig contains sync engine configuration
type SyncConfig struct {
	Interval             time.Duration // Scheduler interval between runs
	Limit                int           // Max documents fetched per full run, 0 = unlimited
	Reconcile            bool          // Run the reconciliation pass after each sync
	TransferTypeCodes    []string      // Accounting-type codes classified as transfers
	PassthroughTypeCodes []string      // Accounting-type codes exempt from cost centers
	IncomeCategories     []string      // Category names placed in the income group
	CategoryGroup        string        // Default ledger group for cost-center categories
	IncomeGroup          string        // Ledger group for income categories
}

// WorkerPoolConfig contains worker pool configuration for batched fetches
type WorkerPoolConfig struct {
	Size int // Maximum number of concurrent position fetches
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.EditEventTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_EDIT_EVENT_TOPIC is required")
	}
	if c.Kafka.ReportTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_REPORT_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate source client config
	if c.Source.BaseURL == "" {
		validationErrors = append(validationErrors, "SOURCE_BASE_URL is required")
	}
	if c.Source.APIKey == "" {
		validationErrors = append(validationErrors, "SOURCE_API_KEY is required")
	}
	if c.Source.RequestInterval < 0 {
		validationErrors = append(validationErrors, "SOURCE_REQUEST_INTERVAL must not be negative")
	}
	if c.Source.PageSize <= 0 {
		validationErrors = append(validationErrors, "SOURCE_PAGE_SIZE must be greater than 0")
	}
	if c.Source.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "SOURCE_REQUEST_TIMEOUT must be greater than 0")
	}

	// Validate ledger client config
	if c.Ledger.BaseURL == "" {
		validationErrors = append(validationErrors, "LEDGER_BASE_URL is required")
	}
	if c.Ledger.AccountName == "" {
		validationErrors = append(validationErrors, "LEDGER_ACCOUNT_NAME is required")
	}
	if c.Ledger.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_REQUEST_TIMEOUT must be greater than 0")
	}

	// Validate sync config
	if c.Sync.Interval <= 0 {
		validationErrors = append(validationErrors, "SYNC_INTERVAL must be greater than 0")
	}
	if c.Sync.Limit < 0 {
		validationErrors = append(validationErrors, "SYNC_LIMIT must not be negative")
	}
	if len(c.Sync.TransferTypeCodes) == 0 {
		validationErrors = append(validationErrors, "SYNC_TRANSFER_TYPE_CODES is required")
	}
	if c.Sync.CategoryGroup == "" {
		validationErrors = append(validationErrors, "SYNC_CATEGORY_GROUP is required")
	}
	if c.Sync.IncomeGroup == "" {
		validationErrors = append(validationErrors, "SYNC_INCOME_GROUP is required")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
