package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port             string
	ReadTimeoutSecs  int
	WriteTimeoutSecs int
	IdleTimeoutSecs  int

	StorageDriver     string
	DBURL             string
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int
	MigrationsDir     string
	RunMigrations     bool

	MongoURI                string
	MongoDatabase           string
	MongoConnectTimeoutSecs int

	JWTSecret     string
	JWTTTLMinutes int

	ConsistencyMode       string
	ReconcileIntervalSecs int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTLSecs  int

	NATSURL                string
	NATSConnectTimeoutSecs int

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		ReadTimeoutSecs:  getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),

		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", DriverPostgres)),
		DBURL:             os.Getenv("DB_URL"),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:  getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		MigrationsDir:     getEnv("MIGRATIONS_DIR", "db/migrations"),
		RunMigrations:     getEnvBool("RUN_MIGRATIONS", true),

		MongoURI:                os.Getenv("MONGO_URI"),
		MongoDatabase:           getEnv("MONGO_DATABASE", "movie_reviewer"),
		MongoConnectTimeoutSecs: getEnvInt("MONGO_CONNECT_TIMEOUT_SECS", 10),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTTTLMinutes: getEnvInt("JWT_TTL_MINUTES", 60),

		ConsistencyMode:       strings.ToLower(getEnv("CONSISTENCY_MODE", "relaxed")),
		ReconcileIntervalSecs: getEnvInt("RECONCILE_INTERVAL_SECS", 0),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTLSecs:  getEnvInt("CACHE_TTL_SECS", 60),

		NATSURL:                os.Getenv("NATS_URL"),
		NATSConnectTimeoutSecs: getEnvInt("NATS_CONNECT_TIMEOUT_SECS", 5),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWTTTLMinutes <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL_MINUTES must be positive")
	}

	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DBURL == "" {
			return Config{}, fmt.Errorf("DB_URL is required")
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required")
		}
		if cfg.MongoConnectTimeoutSecs <= 0 {
			return Config{}, fmt.Errorf("MONGO_CONNECT_TIMEOUT_SECS must be positive")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMongo, cfg.StorageDriver)
	}

	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	if cfg.ConsistencyMode != "relaxed" && cfg.ConsistencyMode != "transactional" {
		return Config{}, fmt.Errorf("CONSISTENCY_MODE must be relaxed or transactional, got %q", cfg.ConsistencyMode)
	}
	if cfg.ReconcileIntervalSecs < 0 {
		return Config{}, fmt.Errorf("RECONCILE_INTERVAL_SECS must be non-negative")
	}
	if cfg.RedisAddr != "" && cfg.CacheTTLSecs <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL_SECS must be positive when REDIS_ADDR is set")
	}
	if cfg.NATSURL != "" && cfg.NATSConnectTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("NATS_CONNECT_TIMEOUT_SECS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
