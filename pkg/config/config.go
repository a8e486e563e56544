package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Price transport names accepted in FETCH_TRANSPORTS
const (
	TransportNaver        = "naver"
	TransportYahoo        = "yahoo"
	TransportKIS          = "kis"
	TransportAlphaVantage = "alphavantage"
)

// Pick store drivers accepted in PICK_STORE
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production, test

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	KIS          KISConfig
	Naver        NaverConfig
	AlphaVantage AlphaVantageConfig

	// Pipeline
	Fetch     FetchConfig
	Store     StoreConfig
	Scheduler SchedulerConfig

	// Strategy file (universe, macd mode, theme provider)
	StrategyFile string

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// KISConfig holds KIS (한국투자증권) API configuration
type KISConfig struct {
	AppKey    string
	AppSecret string
	BaseURL   string
	IsVirtual bool // 모의투자 여부
}

// Enabled reports whether KIS credentials are configured
func (k KISConfig) Enabled() bool {
	return k.AppKey != "" && k.AppSecret != ""
}

// NaverConfig holds Naver Finance configuration
type NaverConfig struct {
	BaseURL  string // finance.naver.com (scraping)
	ChartURL string // fchart.stock.naver.com (daily candles)
}

// AlphaVantageConfig holds Alpha Vantage configuration
type AlphaVantageConfig struct {
	APIKey  string
	BaseURL string
}

// Enabled reports whether an API key is configured
func (a AlphaVantageConfig) Enabled() bool {
	return a.APIKey != ""
}

// FetchConfig controls price series collection
type FetchConfig struct {
	Transports    []string // 우선순위 순서
	LookbackDays  int
	Concurrency   int
	CacheTTL      time.Duration
	Timeout       time.Duration
	RatePerSecond float64 // per transport
}

// StoreConfig selects the pick repository
type StoreConfig struct {
	Driver     string // memory, postgres, sqlite
	SQLitePath string
}

// SchedulerConfig controls the daily pick job
type SchedulerConfig struct {
	PickSchedule  string // cron with seconds
	PruneSchedule string
	HistoryLimit  int
	Timezone      string
}

// Location returns the scheduler timezone, falling back to a fixed KST offset
func (s SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// External APIs
		KIS: KISConfig{
			AppKey:    getEnv("KIS_APP_KEY", ""),
			AppSecret: getEnv("KIS_APP_SECRET", ""),
			BaseURL:   getEnv("KIS_BASE_URL", "https://openapi.koreainvestment.com:9443"),
			IsVirtual: getEnvAsBool("KIS_IS_VIRTUAL", false),
		},

		Naver: NaverConfig{
			BaseURL:  getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
			ChartURL: getEnv("NAVER_CHART_URL", "https://fchart.stock.naver.com"),
		},

		AlphaVantage: AlphaVantageConfig{
			APIKey:  getEnv("ALPHAVANTAGE_API_KEY", ""),
			BaseURL: getEnv("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co"),
		},

		Fetch: FetchConfig{
			Transports:    getEnvAsList("FETCH_TRANSPORTS", []string{TransportNaver, TransportYahoo, TransportKIS, TransportAlphaVantage}),
			LookbackDays:  getEnvAsInt("FETCH_LOOKBACK_DAYS", 120),
			Concurrency:   getEnvAsInt("FETCH_CONCURRENCY", 4),
			CacheTTL:      getEnvAsDuration("FETCH_CACHE_TTL", "5m"),
			Timeout:       getEnvAsDuration("FETCH_TIMEOUT", "10s"),
			RatePerSecond: getEnvAsFloat("FETCH_RATE_PER_SECOND", 5),
		},

		Store: StoreConfig{
			Driver:     getEnv("PICK_STORE", StoreMemory),
			SQLitePath: getEnv("SQLITE_PATH", "data/stockpick.db"),
		},

		Scheduler: SchedulerConfig{
			PickSchedule:  getEnv("PICK_SCHEDULE", "0 5 0 * * *"), // 매일 00:05 KST
			PruneSchedule: getEnv("PRUNE_SCHEDULE", "0 30 0 * * *"),
			HistoryLimit:  getEnvAsInt("HISTORY_LIMIT", 30),
			Timezone:      getEnv("TZ_MARKET", "Asia/Seoul"),
		},

		StrategyFile: getEnv("STRATEGY_FILE", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when PICK_STORE=postgres")
		}
	default:
		return fmt.Errorf("PICK_STORE must be one of: memory, postgres, sqlite (got %q)", c.Store.Driver)
	}

	if len(c.Fetch.Transports) == 0 {
		return fmt.Errorf("FETCH_TRANSPORTS must name at least one transport")
	}
	for _, name := range c.Fetch.Transports {
		switch name {
		case TransportNaver, TransportYahoo, TransportKIS, TransportAlphaVantage:
		default:
			return fmt.Errorf("unknown transport in FETCH_TRANSPORTS: %q", name)
		}
	}

	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be >= 1")
	}
	if c.Fetch.LookbackDays < 1 {
		return fmt.Errorf("FETCH_LOOKBACK_DAYS must be >= 1")
	}
	if c.Scheduler.HistoryLimit < 1 {
		return fmt.Errorf("HISTORY_LIMIT must be >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, trimming blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
