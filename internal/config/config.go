// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Reddit      RedditConfig
	Collector   CollectorConfig
	Classifier  ClassifierConfig
	Aggregator  AggregatorConfig
	SymbolSync  SymbolSyncConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// RedditConfig holds the upstream feed configuration
type RedditConfig struct {
	UserAgent  string
	MaxRetries int
}

// CollectorConfig holds the fetch/process pipeline configuration
type CollectorConfig struct {
	Communities      []string
	PostsPerFetch    int
	CommentsPerFetch int
	Subject          string
	FetchSchedule    string
	ReloadSchedule   string
}

// ClassifierConfig holds DD classification configuration
type ClassifierConfig struct {
	MinWordCount     int
	Threshold        int
	CommunityWeights map[string]float64
}

// AggregatorConfig holds trend aggregation configuration
type AggregatorConfig struct {
	PageSize    int
	ByCommunity bool
	Schedule    string
}

// SymbolSyncConfig holds symbol directory sync configuration
type SymbolSyncConfig struct {
	NasdaqURL string
	OtherURL  string
	Schedule  string
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "tickerpulse"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Reddit: RedditConfig{
			UserAgent:  getEnv("REDDIT_USER_AGENT", "tickerpulse/1.0"),
			MaxRetries: getEnvAsInt("REDDIT_MAX_RETRIES", 3),
		},
		Collector: CollectorConfig{
			Communities: getEnvAsSlice("COLLECTOR_COMMUNITIES", []string{
				"wallstreetbets", "stocks", "investing", "StockMarket",
				"pennystocks", "SecurityAnalysis", "ValueInvesting",
			}),
			PostsPerFetch:    getEnvAsInt("COLLECTOR_POSTS_PER_FETCH", 100),
			CommentsPerFetch: getEnvAsInt("COLLECTOR_COMMENTS_PER_FETCH", 100),
			Subject:          getEnv("COLLECTOR_SUBJECT", "content.reddit"),
			FetchSchedule:    getEnv("COLLECTOR_FETCH_SCHEDULE", "*/5 * * * *"),
			ReloadSchedule:   getEnv("COLLECTOR_RELOAD_SCHEDULE", "30 * * * *"),
		},
		Classifier: ClassifierConfig{
			MinWordCount:     getEnvAsInt("CLASSIFIER_MIN_WORD_COUNT", 300),
			Threshold:        getEnvAsInt("CLASSIFIER_THRESHOLD", 6),
			CommunityWeights: getEnvAsWeights("CLASSIFIER_COMMUNITY_WEIGHTS"),
		},
		Aggregator: AggregatorConfig{
			PageSize:    getEnvAsInt("AGGREGATOR_PAGE_SIZE", 500),
			ByCommunity: getEnvAsBool("AGGREGATOR_BY_COMMUNITY", false),
			Schedule:    getEnv("AGGREGATOR_SCHEDULE", "*/15 * * * *"),
		},
		SymbolSync: SymbolSyncConfig{
			NasdaqURL: getEnv("SYMBOL_SYNC_NASDAQ_URL", ""),
			OtherURL:  getEnv("SYMBOL_SYNC_OTHER_URL", ""),
			Schedule:  getEnv("SYMBOL_SYNC_SCHEDULE", "0 6 * * *"),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if len(config.Collector.Communities) == 0 {
		return fmt.Errorf("at least one community must be configured")
	}
	if config.Reddit.UserAgent == "" {
		return fmt.Errorf("reddit user agent must be set")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

// getEnvAsWeights parses "community:weight,community:weight" pairs. A nil
// result means the classifier falls back to its built-in weights.
func getEnvAsWeights(key string) map[string]float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}

	weights := make(map[string]float64)
	for _, pair := range strings.Split(valueStr, ",") {
		name, weightStr, found := strings.Cut(strings.TrimSpace(pair), ":")
		if !found {
			continue
		}
		weight, err := strconv.ParseFloat(weightStr, 64)
		if err != nil {
			continue
		}
		weights[name] = weight
	}

	if len(weights) == 0 {
		return nil
	}
	return weights
}
