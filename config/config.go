package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSourceURL is the bendibao page listing the current risk areas.
const DefaultSourceURL = "http://m.sh.bendibao.com/news/gelizhengce/fengxianmingdan.php"

// Store drivers accepted in STORE_DRIVER.
const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ListenAddr        string
	SourceURLs        []string
	PollIntervalHours int

	StoreDriver string
	DataDir     string
	SQLitePath  string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	PageTimeout    time.Duration

	SnapshotLimit int
	CompareLimit  int

	CSVOutputPath string
	ChromeBin     string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	dataDir := getEnv("DATA_DIR", "./data")

	return &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":3300"),
		SourceURLs:        getEnvList("SOURCE_URLS", []string{DefaultSourceURL}),
		PollIntervalHours: getEnvInt("POLL_INTERVAL_HOURS", 6),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverJSON)),
		DataDir:     dataDir,
		SQLitePath:  getEnv("SQLITE_PATH", dataDir+"/covid.sqlite"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "covid"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "covid123"),
		PostgresDB:       getEnv("POSTGRES_DB", "covid_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 600)) * time.Second,

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 2),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		PageTimeout:    time.Duration(getEnvInt("PAGE_TIMEOUT_SECONDS", 60)) * time.Second,

		SnapshotLimit: getEnvInt("SNAPSHOT_LIMIT", 50),
		CompareLimit:  getEnvInt("COMPARE_LIMIT", 10),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/raw_areas.csv"),
		ChromeBin:     getEnv("CHROME_BIN", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// PollInterval returns the scrape interval, never shorter than an hour.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalHours < 1 {
		return time.Hour
	}
	return time.Duration(c.PollIntervalHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
