// Package config loads the settings of the reconciliation services from an optional .env file,
// the environment and built-in defaults, and validates them at startup.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config is shared by the API and the reconciler processes; each reads the sections it needs.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Ledger      LedgerConfig
	Matching    MatchingConfig
}

type ApplicationConfig struct {
	Env  string
	Name string
}

type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxUploadBytes  int64 // Upper bound of a CSV statement upload
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	CommandTopic      string // RecordPayment commands from open-banking synchronisation
	EventTopic        string // Ledger events for downstream account projections
	DLQTopic          string
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	MaxHandleAttempts int // Deliveries of one message before it is parked on the DLQ
}

// PostgresConfig holds the event store connection
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig holds the rent call read model connection
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

type WorkerPoolConfig struct {
	Size int
}

// LedgerConfig bounds the optimistic concurrency retry loop of a single command
type LedgerConfig struct {
	MaxAttempts    int
	RetryBackoff   time.Duration
	CommandTimeout time.Duration
}

// MatchingConfig holds the tunable weights and thresholds of the matching engine
type MatchingConfig struct {
	AmountWeight       float64
	NameWeight         float64
	ReferenceWeight    float64
	TemporalWeight     float64
	InclusionThreshold float64
	AmbiguityEpsilon   float64
	HighThreshold      float64
	MediumThreshold    float64
	GraceDays          int
	DecayMonths        int
}

func (c *Config) validate() error {
	var validationErrors []string
	require := func(ok bool, msg string) {
		if !ok {
			validationErrors = append(validationErrors, msg)
		}
	}

	require(c.Server.Port > 0, "SERVER_PORT must be greater than 0")
	require(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	require(c.Server.ReadTimeout > 0, "SERVER_READ_TIMEOUT must be greater than 0")
	require(c.Server.WriteTimeout > 0, "SERVER_WRITE_TIMEOUT must be greater than 0")
	require(c.Server.IdleTimeout > 0, "SERVER_IDLE_TIMEOUT must be greater than 0")
	require(c.Server.MaxUploadBytes > 0, "SERVER_MAX_UPLOAD_BYTES must be greater than 0")

	require(c.Kafka.Brokers != "", "KAFKA_BROKERS is required")
	require(c.Kafka.CommandTopic != "", "KAFKA_COMMAND_TOPIC is required")
	require(c.Kafka.EventTopic != "", "KAFKA_EVENT_TOPIC is required")
	require(c.Kafka.DLQTopic != "", "KAFKA_DLQ_TOPIC is required")
	require(c.Kafka.ConsumerGroup != "", "KAFKA_CONSUMER_GROUP is required")
	require(c.Kafka.MinBytes > 0, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	require(c.Kafka.MaxBytes > 0, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	require(c.Kafka.MaxWait > 0, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	require(c.Kafka.MaxHandleAttempts > 0, "KAFKA_CONSUMER_MAX_ATTEMPTS must be greater than 0")

	require(c.Postgres.URL != "", "POSTGRES_URL is required")
	require(c.Postgres.MaxConns > 0, "POSTGRES_MAX_CONNS must be greater than 0")
	require(c.Postgres.MinConns > 0, "POSTGRES_MIN_CONNS must be greater than 0")
	require(c.Postgres.ConnMaxLifetime > 0, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	require(c.Postgres.ConnMaxIdleTime > 0, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")

	require(c.MongoDB.URI != "", "MONGO_URI is required")
	require(c.MongoDB.Database != "", "MONGO_DATABASE is required")
	require(c.MongoDB.Timeout > 0, "MONGO_TIMEOUT must be greater than 0")
	require(c.MongoDB.MaxPoolSize > 0, "MONGO_MAX_POOL_SIZE must be greater than 0")
	require(c.MongoDB.MaxConnIdleTime > 0, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")

	require(c.Outbox.PollingInterval > 0, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	require(c.Outbox.BatchSize > 0, "OUTBOX_BATCH_SIZE must be greater than 0")
	require(c.Outbox.MaxRetryAttempts > 0, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")

	require(c.WorkerPool.Size > 0, "WORKER_POOL_SIZE must be greater than 0")

	require(c.Ledger.MaxAttempts > 0, "LEDGER_MAX_ATTEMPTS must be greater than 0")
	require(c.Ledger.RetryBackoff >= 0, "LEDGER_RETRY_BACKOFF must not be negative")
	require(c.Ledger.CommandTimeout > 0, "LEDGER_COMMAND_TIMEOUT must be greater than 0")

	m := c.Matching
	require(m.AmountWeight >= 0 && m.NameWeight >= 0 && m.ReferenceWeight >= 0 && m.TemporalWeight >= 0,
		"MATCH_*_WEIGHT values must not be negative")
	require(m.AmountWeight+m.NameWeight+m.ReferenceWeight+m.TemporalWeight > 0,
		"at least one MATCH_*_WEIGHT must be greater than 0")
	require(m.InclusionThreshold >= 0 && m.InclusionThreshold <= 1, "MATCH_INCLUSION_THRESHOLD must be within [0,1]")
	require(m.AmbiguityEpsilon >= 0, "MATCH_AMBIGUITY_EPSILON must not be negative")
	require(m.MediumThreshold <= m.HighThreshold, "MATCH_MEDIUM_THRESHOLD must not exceed MATCH_HIGH_THRESHOLD")
	require(m.GraceDays >= 0, "MATCH_GRACE_DAYS must not be negative")
	require(m.DecayMonths >= 0, "MATCH_DECAY_MONTHS must not be negative")

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}
	return nil
}
