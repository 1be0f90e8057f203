package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type envConfig struct {
	APP_PORT      string
	LOG_FILE_PATH string
	LOG_LEVEL     string

	DB_HOST              string
	DB_PORT              int
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	DB_SSL_MODE          string
	DB_MAX_OPEN_CONNS    int
	DB_MAX_IDLE_CONNS    int
	DB_CONN_MAX_LIFETIME time.Duration

	ES_URL         string
	GCP_PROJECT_ID string

	EXPORT_ROW_WINDOW int
	EXPORT_MAX_STYLES int
	EXPORT_PROFILE    string
	TEMPLATE_DIR      string
}

// DefaultEnvConfig holds the settings loaded by LoadEnvConfig.
var DefaultEnvConfig = envConfig{
	APP_PORT:             "8080",
	LOG_LEVEL:            "info",
	DB_HOST:              "localhost",
	DB_PORT:              5432,
	DB_SSL_MODE:          "disable",
	DB_MAX_OPEN_CONNS:    10,
	DB_MAX_IDLE_CONNS:    5,
	DB_CONN_MAX_LIFETIME: 30 * time.Minute,
	TEMPLATE_DIR:         "templates",
}

// LoadEnvConfig reads .env when present and overlays the process environment
// on DefaultEnvConfig.
func LoadEnvConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return DefaultEnvConfig.load(os.Getenv)
}

func (c *envConfig) load(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("APP_PORT", &c.APP_PORT)
	str("LOG_FILE_PATH", &c.LOG_FILE_PATH)
	str("LOG_LEVEL", &c.LOG_LEVEL)
	str("DB_HOST", &c.DB_HOST)
	num("DB_PORT", &c.DB_PORT)
	str("DB_USER", &c.DB_USER)
	str("DB_PASSWORD", &c.DB_PASSWORD)
	str("DB_NAME", &c.DB_NAME)
	str("DB_SSL_MODE", &c.DB_SSL_MODE)
	num("DB_MAX_OPEN_CONNS", &c.DB_MAX_OPEN_CONNS)
	num("DB_MAX_IDLE_CONNS", &c.DB_MAX_IDLE_CONNS)
	if v := getenv("DB_CONN_MAX_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", err))
		} else {
			c.DB_CONN_MAX_LIFETIME = d
		}
	}
	str("ES_URL", &c.ES_URL)
	str("GCP_PROJECT_ID", &c.GCP_PROJECT_ID)
	num("EXPORT_ROW_WINDOW", &c.EXPORT_ROW_WINDOW)
	num("EXPORT_MAX_STYLES", &c.EXPORT_MAX_STYLES)
	str("EXPORT_PROFILE", &c.EXPORT_PROFILE)
	str("TEMPLATE_DIR", &c.TEMPLATE_DIR)

	return multierr.Combine(errs...)
}
