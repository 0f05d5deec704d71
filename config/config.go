package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBDriver         string // postgres or sqlite
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string
	DBConnectRetries int

	StagingTable        string
	ReferenceTable      string
	ProductTable        string
	RecommendationTable string

	SourceProfile  string // path to a YAML profile; empty uses the embedded klikindomaret profile
	BaseURL        string // overrides the profile's base URL when set
	PagesToScrape  int
	BatchSize      int
	WaitTimeMs     int
	RateLimitMs    int
	PageTimeoutSec int
	ChromeBin      string
	Headless       bool

	CleaningRules  string // path to a YAML rule file; empty uses the embedded rules
	CleanedCSVPath string

	TestSplit  float64
	RandomSeed int64

	HTTPAddr       string
	RequestTimeout time.Duration
	CacheDriver    string // none, memory or redis
	CacheTTL       time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	LogLevel  string
	LogFormat string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5400"),
		PostgresUser:     getEnv("POSTGRES_USER", "admin"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "admin"),
		PostgresDB:       getEnv("POSTGRES_DB", "e2e_ml"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/pricing.db"),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 10),

		StagingTable:        getEnv("STAGING_TABLE", "klikindomaret_stg"),
		ReferenceTable:      getEnv("REFERENCE_TABLE", "klikindomaret_ref"),
		ProductTable:        getEnv("PRODUCT_TABLE", "product"),
		RecommendationTable: getEnv("RECOMMENDATION_TABLE", "pricerecommendation"),

		SourceProfile:  getEnv("SOURCE_PROFILE", ""),
		BaseURL:        getEnv("BASE_URL", ""),
		PagesToScrape:  getEnvInt("PAGES_TO_SCRAPE", 2),
		BatchSize:      getEnvInt("BATCH_SIZE", 5),
		WaitTimeMs:     getEnvInt("WAIT_TIME_MS", 5000),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 0),
		PageTimeoutSec: getEnvInt("PAGE_TIMEOUT_SEC", 60),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		Headless:       getEnvBool("HEADLESS", true),

		CleaningRules:  getEnv("CLEANING_RULES", ""),
		CleanedCSVPath: getEnv("CLEANED_CSV_PATH", "./output/cleaned_data.csv"),

		TestSplit:  getEnvFloat("TEST_SPLIT", 0.2),
		RandomSeed: int64(getEnvInt("RANDOM_SEED", 42)),

		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 15)) * time.Second,
		CacheDriver:    strings.ToLower(getEnv("CACHE_DRIVER", "none")),
		CacheTTL:       time.Duration(getEnvInt("CACHE_TTL_SEC", 60)) * time.Second,
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// Validate checks the values a stage cannot run without.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q (want postgres or sqlite)", c.DBDriver)
	}
	if c.PagesToScrape < 1 {
		return fmt.Errorf("config: PAGES_TO_SCRAPE must be >= 1, got %d", c.PagesToScrape)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("config: BATCH_SIZE must be >= 1, got %d", c.BatchSize)
	}
	if c.TestSplit <= 0 || c.TestSplit >= 1 {
		return fmt.Errorf("config: TEST_SPLIT must be in (0,1), got %v", c.TestSplit)
	}
	switch c.CacheDriver {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("config: unknown CACHE_DRIVER %q", c.CacheDriver)
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// WaitTime is the fixed post-navigation delay before a page is read.
func (c *Config) WaitTime() time.Duration {
	return time.Duration(c.WaitTimeMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
