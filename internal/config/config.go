package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"Conciliador"`
		Port     int    `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"conciliador"`
		Migrate  bool   `envconfig:"DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout       time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		MaxUploadSize int64         `envconfig:"SERVER_MAX_UPLOAD_BYTES" default:"20971520"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Matching struct {
		AmountTolerance int64   `envconfig:"MATCHING_AMOUNT_TOLERANCE" default:"100"`
		DateWindowDays  int     `envconfig:"MATCHING_DATE_WINDOW_DAYS" default:"30"`
		MinScore        float64 `envconfig:"MATCHING_MIN_SCORE" default:"0.35"`
		ConfidentScore  float64 `envconfig:"MATCHING_CONFIDENT_SCORE" default:"0.7"`
	}

	Pipeline struct {
		// AutoAcceptScore is disabled when unset.
		AutoAcceptScore *float64 `envconfig:"PIPELINE_AUTO_ACCEPT_SCORE"`
		Workers         int      `envconfig:"PIPELINE_WORKERS" default:"4"`
		QueueSize       int      `envconfig:"PIPELINE_QUEUE_SIZE" default:"64"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Pipeline.AutoAcceptScore != nil {
		s := *cfg.Pipeline.AutoAcceptScore
		if s <= 0 || s > 1 {
			return nil, fmt.Errorf("PIPELINE_AUTO_ACCEPT_SCORE must be in (0,1], got %v", s)
		}
	}

	return &cfg, nil
}
