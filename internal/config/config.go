package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the claro-backend configuration, loaded from environment
// variables with local-dev defaults.
type Config struct {
	HTTP struct {
		Addr string
	}
	Database DatabaseConfig
	Redis    struct {
		Addr     string
		Password string
		DB       int
	}
	Cache struct {
		Enabled bool
		TTL     time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
	Search SearchConfig
	OpenAI OpenAIConfig
	Law    LawConfig
	Source SourceConfig
}

// DatabaseConfig Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// SearchConfig full-text retrieval settings.
type SearchConfig struct {
	// Analyzer is the Postgres text search configuration for the
	// language-aware tier. Postgres ships no Polish configuration out of
	// the box, so it is site-provided; when missing, search falls back to
	// the simple tier at runtime.
	Analyzer string
	Limit    int
}

// OpenAIConfig answer-generation settings.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// LawConfig identifies the statute this deployment tracks.
type LawConfig struct {
	ID   string
	Name string
}

// SourceConfig ISAP fetch settings.
type SourceConfig struct {
	BaseURL   string
	DocID     string
	Timeout   time.Duration
	RetryWait time.Duration
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "claro")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0
	cfg.Cache.Enabled = getEnv("CACHE_ENABLED", "true") == "true"
	cfg.Cache.TTL = parseDuration(getEnv("CACHE_TTL", "1h"), time.Hour)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Search.Analyzer = getEnv("SEARCH_ANALYZER", "polish")
	cfg.Search.Limit = parseInt(getEnv("SEARCH_LIMIT", "5"), 5)

	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", "")
	cfg.OpenAI.Model = getEnv("OPENAI_MODEL", "gpt-3.5-turbo")

	cfg.Law.ID = getEnv("LAW_ID", "vat")
	cfg.Law.Name = getEnv("LAW_NAME", "Ustawa o podatku od towarów i usług")

	cfg.Source.BaseURL = getEnv("ISAP_BASE_URL", "https://isap.sejm.gov.pl")
	cfg.Source.DocID = getEnv("ISAP_DOC_ID", "WDU20040540535")
	cfg.Source.Timeout = parseDuration(getEnv("SOURCE_TIMEOUT", "30s"), 30*time.Second)
	cfg.Source.RetryWait = parseDuration(getEnv("SOURCE_RETRY_WAIT", "3s"), 3*time.Second)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
