// Package config loads the service configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Tables struct {
	Orders      string `envconfig:"ORDERS_TABLE" default:"orders"`
	OrderItems  string `envconfig:"ORDER_ITEMS_TABLE" default:"order_items"`
	Production  string `envconfig:"PRODUCTION_TABLE" default:"production_status"`
	Assignments string `envconfig:"ASSIGNMENTS_TABLE" default:"assignments"`
	Archives    string `envconfig:"ARCHIVES_TABLE" default:"archives"`
	Workers     string `envconfig:"WORKERS_TABLE" default:"workers"`
	DelaiConfig string `envconfig:"DELAI_CONFIG_TABLE" default:"delai_config"`
	Jobs        string `envconfig:"JOBS_TABLE" default:"sync_jobs"`
}

type WooCommerce struct {
	BaseURL        string `envconfig:"WC_BASE_URL"`
	ConsumerKey    string `envconfig:"WC_CONSUMER_KEY"`
	ConsumerSecret string `envconfig:"WC_CONSUMER_SECRET"`
}

type Sync struct {
	PageSize      int           `envconfig:"SYNC_PAGE_SIZE" default:"100"`
	PageDelay     time.Duration `envconfig:"SYNC_PAGE_DELAY" default:"500ms"`
	LockTTL       time.Duration `envconfig:"SYNC_LOCK_TTL" default:"15m"`
	QueueURL      string        `envconfig:"SYNC_QUEUE_URL"`
	MetricsPrefix string        `envconfig:"SYNC_METRICS_NAMESPACE" default:"MaisonCleo/Sync"`
	JobTTL        time.Duration `envconfig:"SYNC_JOB_TTL" default:"48h"`
}

type Config struct {
	Port              string   `envconfig:"PORT" default:"8080"`
	RunLocal          bool     `envconfig:"RUN_LOCAL" default:"false"`
	LogLevel          string   `envconfig:"LOG_LEVEL" default:"info"`
	AllowedOrigins    []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	DashboardPassword string   `envconfig:"DASHBOARD_PASSWORD_HASH"`
	RedisAddress      string   `envconfig:"REDIS_ADDRESS"`
	ImagesBucket      string   `envconfig:"GCS_IMAGES_BUCKET"`
	GCSCredentials    string   `envconfig:"GCS_CREDENTIALS_JSON"`
	HolidaysURL       string   `envconfig:"HOLIDAYS_URL" default:"https://calendrier.api.gouv.fr/jours-feries/metropole"`
	Timezone          string   `envconfig:"TZ_NAME" default:"Europe/Paris"`

	Tables      Tables
	WooCommerce WooCommerce
	Sync        Sync
}

// Load reads .env (if any) then decodes the environment into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if cfg.Sync.PageSize <= 0 {
		cfg.Sync.PageSize = 100
	}
	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
