package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// SpreadsheetID plus SheetGIDs build the CSV export URLs; SheetCSVURLs
	// overrides them with explicit URLs; DataFile overrides everything with a
	// local CSV for offline runs.
	SpreadsheetID string
	SheetGIDs     []string
	SheetCSVURLs  []string
	DataFile      string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int

	FXRateIDRUSD           float64
	AssumedFreeholdHorizon float64
	CacheTTLSeconds        int

	CSVOutputPath string
	HTTPPort      string
	LogLevel      string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "dashboard"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "dashboard123"),
		PostgresDB:       getEnv("POSTGRES_DB", "property_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SpreadsheetID: getEnv("SPREADSHEET_ID", ""),
		SheetGIDs:     getEnvList("SHEET_GIDS", []string{"0"}),
		SheetCSVURLs:  getEnvList("SHEET_CSV_URLS", nil),
		DataFile:      getEnv("DATA_FILE", ""),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 500),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		FXRateIDRUSD:           getEnvFloat("FX_RATE_IDR_USD", 15000),
		AssumedFreeholdHorizon: getEnvFloat("ASSUMED_FREEHOLD_HORIZON", 30),
		CacheTTLSeconds:        getEnvInt("CACHE_TTL_SECONDS", 600),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/enriched_listings.csv"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
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

// SheetURLs resolves the list of CSV export URLs to fetch, preferring the
// explicit override list.
func (c *Config) SheetURLs() []string {
	if len(c.SheetCSVURLs) > 0 {
		return c.SheetCSVURLs
	}
	if c.SpreadsheetID == "" {
		return nil
	}
	urls := make([]string, 0, len(c.SheetGIDs))
	for _, gid := range c.SheetGIDs {
		urls = append(urls, fmt.Sprintf(
			"https://docs.google.com/spreadsheets/d/%s/export?format=csv&gid=%s",
			c.SpreadsheetID, gid))
	}
	return urls
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

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
