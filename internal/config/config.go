package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"pickwire"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"pickwire_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Fetching
	SnapshotDir     string        `envconfig:"SNAPSHOT_DIR" default:"./snapshots"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	BrowserTimeout  time.Duration `envconfig:"BROWSER_TIMEOUT" default:"45s"`
	RobotsCacheTTL  time.Duration `envconfig:"ROBOTS_CACHE_TTL" default:"1h"`
	UserAgent       string        `envconfig:"USER_AGENT" default:"pickwire/1.0"`
	ChromeDevtools  string        `envconfig:"CHROME_DEVTOOLS_URL" default:""`
	FetchWorkers    int           `envconfig:"FETCH_WORKERS" default:"3"`
	ParseWorkers    int           `envconfig:"PARSE_WORKERS" default:"8"`

	// Team registry
	CuratedSport string `envconfig:"CURATED_SPORT" default:"nba"`

	// Scheduler
	EnableScheduler  bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialFetch     bool   `envconfig:"INITIAL_FETCH" default:"false"`
	ResultsCronDay   string `envconfig:"RESULTS_CRON_DAY" default:"*/15 18-23 * * *"`
	ResultsCronLate  string `envconfig:"RESULTS_CRON_LATE" default:"0 */4 * * *"`
	AlertCron        string `envconfig:"ALERT_CRON" default:"0 * * * *"`

	// Results providers
	ScoreboardBaseURL string        `envconfig:"SCOREBOARD_BASE_URL" default:"https://site.api.espn.com/apis/site/v2/sports"`
	FootballBaseURL   string        `envconfig:"FOOTBALL_BASE_URL" default:"https://api.football-data.org/v4"`
	FootballAPIKey    string        `envconfig:"FOOTBALL_API_KEY" default:""`
	ResultsTimeout    time.Duration `envconfig:"RESULTS_TIMEOUT" default:"20s"`

	// Alerts
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
	TelegramChatID   string  `envconfig:"TELEGRAM_CHAT_ID" default:""`
	AlertTopN        int     `envconfig:"ALERT_TOP_N" default:"3"`
	AlertMinScore    int     `envconfig:"ALERT_MIN_SCORE" default:"6"`
	AlertDedupTTL    time.Duration `envconfig:"ALERT_DEDUP_TTL" default:"24h"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.SnapshotDir == "" {
		return fmt.Errorf("SNAPSHOT_DIR must not be empty")
	}

	if c.FetchWorkers < 1 || c.ParseWorkers < 1 {
		return fmt.Errorf("worker counts must be at least 1")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// AlertsEnabled reports whether a notification channel is configured.
// When false the alert worker runs as a no-op.
func (c *Config) AlertsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
