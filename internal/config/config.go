package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	App           AppConfig
	Cache         CacheConfig
	Replenishment ReplenishmentConfig
	LLM           LLMConfig
	Storage       StorageConfig
	PubSub        PubSubConfig
	Telemetry     TelemetryConfig

	// problems found while parsing, reported by Validate
	problems []string
}

type ServerConfig struct {
	Enabled        bool
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// DSN returns the connection string, preferring DATABASE_URL when set.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type AppConfig struct {
	Environment string
	DataDir     string
	LogLevel    string
	LogFormat   string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	SupplierTTLSeconds int
	LockKey            string
}

type ReplenishmentConfig struct {
	CheckInterval        time.Duration
	MaxAutoOrderValue    float64
	AutoApproveThreshold float64
	CriticalMonths       []int
	MaxCycleDuration     time.Duration
	SalesWindowDays      int
	WorkerCount          int
	BackoffInitial       time.Duration
	BackoffMax           time.Duration
	ExplainTimeout       time.Duration
	SafetyStockFactor    float64
	PeakQuantityBoost    float64
	LockTTL              time.Duration
}

type LLMConfig struct {
	Enabled         bool
	PrimaryProvider string // "openai" or "anthropic"
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	MaxTokens       int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type PubSubConfig struct {
	Enabled         bool
	ProjectID       string
	DecisionsTopic  string
	AlertsTopic     string
	OrdersTopic     string
	CredentialsFile string
	Endpoint        string // emulator or private endpoint, optional
}

type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads the process configuration once. A .env file in the working
// directory is loaded first if it exists.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()
		instance = New()
	})

	return instance
}

// New builds a Config from defaults and the environment, bypassing the
// singleton.
func New() *Config {
	v := viper.New()
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Enabled:        v.GetBool("SERVER_ENABLED"),
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("DB_ENABLED"),
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt("DB_MAX_CONNS"),
		},
		App: AppConfig{
			Environment: v.GetString("APP_ENV"),
			DataDir:     v.GetString("APP_DATA_DIR"),
			LogLevel:    v.GetString("LOG_LEVEL"),
			LogFormat:   v.GetString("LOG_FORMAT"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			SupplierTTLSeconds: v.GetInt("CACHE_SUPPLIER_TTL_SECONDS"),
			LockKey:            v.GetString("CYCLE_LOCK_KEY"),
		},
		Replenishment: ReplenishmentConfig{
			CheckInterval:        v.GetDuration("CHECK_INTERVAL"),
			MaxAutoOrderValue:    v.GetFloat64("MAX_AUTO_ORDER_VALUE"),
			AutoApproveThreshold: v.GetFloat64("AUTO_APPROVE_THRESHOLD"),
			MaxCycleDuration:     v.GetDuration("MAX_CYCLE_DURATION"),
			SalesWindowDays:      v.GetInt("SALES_WINDOW_DAYS"),
			WorkerCount:          v.GetInt("WORKER_COUNT"),
			BackoffInitial:       v.GetDuration("BACKOFF_INITIAL"),
			BackoffMax:           v.GetDuration("BACKOFF_MAX"),
			ExplainTimeout:       v.GetDuration("EXPLAIN_TIMEOUT"),
			SafetyStockFactor:    v.GetFloat64("SAFETY_STOCK_FACTOR"),
			PeakQuantityBoost:    v.GetFloat64("PEAK_QUANTITY_BOOST"),
			LockTTL:              v.GetDuration("CYCLE_LOCK_TTL"),
		},
		LLM: LLMConfig{
			Enabled:         v.GetBool("LLM_ENABLED"),
			PrimaryProvider: strings.ToLower(v.GetString("LLM_PRIMARY_PROVIDER")),
			OpenAIAPIKey:    v.GetString("OPENAI_API_KEY"),
			OpenAIModel:     v.GetString("OPENAI_MODEL"),
			AnthropicAPIKey: v.GetString("ANTHROPIC_API_KEY"),
			AnthropicModel:  v.GetString("ANTHROPIC_MODEL"),
			MaxTokens:       v.GetInt("LLM_MAX_TOKENS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		PubSub: PubSubConfig{
			Enabled:         v.GetBool("PUBSUB_ENABLED"),
			ProjectID:       v.GetString("PUBSUB_PROJECT_ID"),
			DecisionsTopic:  v.GetString("PUBSUB_DECISIONS_TOPIC"),
			AlertsTopic:     v.GetString("PUBSUB_ALERTS_TOPIC"),
			OrdersTopic:     v.GetString("PUBSUB_ORDERS_TOPIC"),
			CredentialsFile: v.GetString("PUBSUB_CREDENTIALS_FILE"),
			Endpoint:        v.GetString("PUBSUB_ENDPOINT"),
		},
		Telemetry: TelemetryConfig{
			Enabled:     v.GetBool("OTEL_ENABLED"),
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		},
	}

	months, err := parseMonths(v.GetString("CRITICAL_MONTHS"))
	if err != nil {
		cfg.problems = append(cfg.problems, err.Error())
	}
	cfg.Replenishment.CriticalMonths = months

	// Unparseable durations come back as zero; flag the raw value instead of
	// reporting a confusing "must be positive".
	for _, key := range []string{"CHECK_INTERVAL", "MAX_CYCLE_DURATION", "BACKOFF_INITIAL", "BACKOFF_MAX", "EXPLAIN_TIMEOUT", "CYCLE_LOCK_TTL"} {
		raw := strings.TrimSpace(v.GetString(key))
		if _, err := time.ParseDuration(raw); err != nil {
			cfg.problems = append(cfg.problems, fmt.Sprintf("%s: invalid duration %q", key, raw))
		}
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ENABLED", true)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "restock")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_DATA_DIR", "./data")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_SUPPLIER_TTL_SECONDS", 300)
	v.SetDefault("CYCLE_LOCK_KEY", "cycle:lock")

	v.SetDefault("CHECK_INTERVAL", "1h")
	v.SetDefault("MAX_AUTO_ORDER_VALUE", 5000)
	v.SetDefault("AUTO_APPROVE_THRESHOLD", 0.85)
	v.SetDefault("CRITICAL_MONTHS", "1,6,7,8")
	v.SetDefault("MAX_CYCLE_DURATION", "10m")
	v.SetDefault("SALES_WINDOW_DAYS", 90)
	v.SetDefault("WORKER_COUNT", 4)
	v.SetDefault("BACKOFF_INITIAL", "30s")
	v.SetDefault("BACKOFF_MAX", "30m")
	v.SetDefault("EXPLAIN_TIMEOUT", "10s")
	v.SetDefault("SAFETY_STOCK_FACTOR", 1.5)
	v.SetDefault("PEAK_QUANTITY_BOOST", 0.2)
	v.SetDefault("CYCLE_LOCK_TTL", "15m")

	v.SetDefault("LLM_ENABLED", false)
	v.SetDefault("LLM_PRIMARY_PROVIDER", "openai")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-latest")
	v.SetDefault("LLM_MAX_TOKENS", 300)

	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
	v.SetDefault("STORAGE_BUCKET", "restock-ledger")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", false)

	v.SetDefault("PUBSUB_ENABLED", false)
	v.SetDefault("PUBSUB_DECISIONS_TOPIC", "restock-decisions")
	v.SetDefault("PUBSUB_ALERTS_TOPIC", "stock-alerts")
	v.SetDefault("PUBSUB_ORDERS_TOPIC", "purchase-orders")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318")
	v.SetDefault("OTEL_SERVICE_NAME", "restock-engine")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseMonths(raw string) ([]int, error) {
	var months []int
	for _, part := range splitList(raw) {
		m, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("CRITICAL_MONTHS: %q is not a month number", part)
		}
		months = append(months, m)
	}
	return months, nil
}
