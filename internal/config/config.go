package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type ScraperConfig struct {
	MaxCycles        int
	MaxReviews       int
	ScrollPause      time.Duration
	GrowthTimeout    time.Duration
	ContainerTimeout time.Duration
	ConsentTimeout   time.Duration
	LookupTimeout    time.Duration
	SettleDelay      time.Duration
	MaxRetries       int
	// Locale is the interface language passed to Maps, e.g. "en".
	Locale string
	// JobDelayMin and JobDelayMax bound the pause between batch jobs.
	JobDelayMin time.Duration
	JobDelayMax time.Duration
	// JobsPerHour caps how many places are opened per hour. Zero disables it.
	JobsPerHour int
	OutputDir   string
	LedgerPath  string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Stream   string
}

type QueueConfig struct {
	MaxSize int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Scraper: ScraperConfig{
			MaxCycles:        getIntOrDefault("SCRAPER_MAX_CYCLES", 400),
			MaxReviews:       getIntOrDefault("SCRAPER_MAX_REVIEWS", 1500),
			ScrollPause:      getDurationOrDefault("SCRAPER_SCROLL_PAUSE", 2*time.Second),
			GrowthTimeout:    getDurationOrDefault("SCRAPER_GROWTH_TIMEOUT", 5*time.Second),
			ContainerTimeout: getDurationOrDefault("SCRAPER_CONTAINER_TIMEOUT", 3*time.Second),
			ConsentTimeout:   getDurationOrDefault("SCRAPER_CONSENT_TIMEOUT", 5*time.Second),
			LookupTimeout:    getDurationOrDefault("SCRAPER_LOOKUP_TIMEOUT", 15*time.Second),
			SettleDelay:      getDurationOrDefault("SCRAPER_SETTLE_DELAY", 3*time.Second),
			MaxRetries:       getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			Locale:           getEnvOrDefault("SCRAPER_LOCALE", "en"),
			JobDelayMin:      getDurationOrDefault("SCRAPER_JOB_DELAY_MIN", 5*time.Second),
			JobDelayMax:      getDurationOrDefault("SCRAPER_JOB_DELAY_MAX", 15*time.Second),
			JobsPerHour:      getIntOrDefault("SCRAPER_JOBS_PER_HOUR", 60),
			OutputDir:        getEnvOrDefault("OUTPUT_DIR", "reviews_data"),
			LedgerPath:       getEnvOrDefault("SCRAPER_LEDGER_PATH", "reviews_data/jobs.json"),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Berlin"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "review_scraper"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 4)),
		},
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "review-events"),
		},
		Queue: QueueConfig{
			MaxSize: getIntOrDefault("QUEUE_MAX_SIZE", 1000),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.MaxCycles < 1 {
		return fmt.Errorf("SCRAPER_MAX_CYCLES must be at least 1")
	}

	if c.Scraper.MaxReviews < 0 {
		return fmt.Errorf("SCRAPER_MAX_REVIEWS cannot be negative")
	}

	if c.Scraper.GrowthTimeout <= 0 {
		return fmt.Errorf("SCRAPER_GROWTH_TIMEOUT must be positive")
	}

	if c.Scraper.JobDelayMin > c.Scraper.JobDelayMax {
		return fmt.Errorf("SCRAPER_JOB_DELAY_MIN cannot be greater than SCRAPER_JOB_DELAY_MAX")
	}

	if c.Scraper.JobsPerHour < 0 {
		return fmt.Errorf("SCRAPER_JOBS_PER_HOUR cannot be negative")
	}

	if c.Scraper.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}

	if c.Queue.MaxSize < 1 {
		return fmt.Errorf("QUEUE_MAX_SIZE must be at least 1")
	}

	if c.Redis.Enabled && c.Redis.Stream == "" {
		return fmt.Errorf("REDIS_STREAM is required when REDIS_ENABLED is set")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
