package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppName               string
	AppEnv                string
	Debug                 bool
	LogLevel              slog.Level
	ApiServicePort        string
	DatabaseURL           string
	DBPoolSize            int
	DBMaxOverflow         int
	DBPoolTimeout         time.Duration
	DBConnMaxLifetime     time.Duration
	DBConnectRetries      int
	DBConnectRetryDelay   time.Duration
	AutoInitSchema        bool
	RunMigrations         bool
	CORSOrigins           []string
	BcryptCost            int
	JWTSecret             string
	AccessTokenExpiration int64
	RedisHost             string
	RedisPort             int64
	RedisPassword         string
	RedisDatabase         int64
	LoginMaxAttempts      int64
	LoginWindow           time.Duration
	MetricsEnabled        bool
	MetricsPath           string
	ReleaseID             string
	BuildID               string
}

func LoadConfig() *Config {
	debug := getEnvAsBool("DEBUG", false)

	return &Config{
		AppName:               getEnv("APP_NAME", "theo-boilerplate"),                          // Default theo-boilerplate
		AppEnv:                getEnv("APP_ENV", "development"),                                // Default development
		Debug:                 debug,                                                           // Default false
		LogLevel:              getLogLevel(),                                                   // Default INFO
		ApiServicePort:        getEnv("API_SERVICE_PORT", "8080"),                              // Default 8080
		DatabaseURL:           getDatabaseURL(),                                                // Default built from POSTGRESQL_*
		DBPoolSize:            int(getEnvAsInt64("DB_POOL_SIZE", 5)),                           // Default 5
		DBMaxOverflow:         int(getEnvAsInt64("DB_MAX_OVERFLOW", 10)),                       // Default 10
		DBPoolTimeout:         getEnvAsSeconds("DB_POOL_TIMEOUT", 30),                          // Default 30 seconds
		DBConnMaxLifetime:     getEnvAsSeconds("DB_CONN_MAX_LIFETIME", 1800),                   // Default 30 minutes
		DBConnectRetries:      int(getEnvAsInt64("DB_CONNECT_RETRIES", 30)),                    // Default 30 attempts
		DBConnectRetryDelay:   getEnvAsSeconds("DB_CONNECT_RETRY_DELAY", 2),                    // Default 2 seconds
		AutoInitSchema:        getEnvAsBool("AUTO_INIT_SCHEMA", debug),                         // Default follows DEBUG
		RunMigrations:         getEnvAsBool("RUN_MIGRATIONS", false),                           // Default false
		CORSOrigins:           getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}), // Default local frontend
		BcryptCost:            int(getEnvAsInt64("BCRYPT_COST", 10)),                           // Default bcrypt.DefaultCost
		JWTSecret:             getEnv("JWT_SECRET", "theo_secret"),                             // Default secret key
		AccessTokenExpiration: getEnvAsInt64("ACCESS_TOKEN_EXPIRATION", 900),                   // Default 15 minutes
		RedisHost:             getEnv("REDIS_HOST", "redis"),                                   // Default redis
		RedisPort:             getEnvAsInt64("REDIS_PORT", 6379),                               // Default 6379
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),                                    // Default empty
		RedisDatabase:         getEnvAsInt64("REDIS_DATABASE", 0),                              // Default 0
		LoginMaxAttempts:      getEnvAsInt64("LOGIN_MAX_ATTEMPTS", 5),                          // Default 5 failures
		LoginWindow:           getEnvAsSeconds("LOGIN_WINDOW", 900),                            // Default 15 minutes
		MetricsEnabled:        getEnvAsBool("METRICS_ENABLED", true),                           // Default true
		MetricsPath:           getEnv("METRICS_PATH", "/metrics"),                              // Default /metrics
		ReleaseID:             getEnv("THEO_RELEASE_ID", ""),                                   // Default empty
		BuildID:               getEnv("THEO_BUILD_ID", ""),                                     // Default empty
	}
}

// IsProduction reports whether debug-only surfaces must stay disabled.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// MaxOpenConns is the hard ceiling of live connections: the pool plus its overflow.
func (c *Config) MaxOpenConns() int {
	return c.DBPoolSize + c.DBMaxOverflow
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback int64) time.Duration {
	return time.Duration(getEnvAsInt64(key, fallback)) * time.Second
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	items := make([]string, 0)
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getLogLevel() slog.Level {
	levelStr := getEnv("LOG_LEVEL", "INFO")

	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getDatabaseURL() string {
	if value, exists := os.LookupEnv("DATABASE_URL"); exists && value != "" {
		return value
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRESQL_USER", "theo_user"), getEnv("POSTGRESQL_PASSWORD", "theo_password")),
		Host:     fmt.Sprintf("%s:%d", getEnv("POSTGRESQL_HOST", "db"), getEnvAsInt64("POSTGRESQL_PORT", 5432)),
		Path:     "/" + getEnv("POSTGRESQL_DATABASE", "theo_db"),
		RawQuery: "sslmode=disable&TimeZone=UTC",
	}
	return dsn.String()
}
