package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PostgresConfig addresses the production database
type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Configured reports whether a database host was given
func (c PostgresConfig) Configured() bool {
	return c.Host != ""
}

// Validate reports every required setting that is missing
func (c PostgresConfig) Validate() error {
	var missing []string
	for name, value := range map[string]string{
		"DB_HOST":     c.Host,
		"DB_PORT":     c.Port,
		"DB_USER":     c.User,
		"DB_PASSWORD": c.Password,
		"DB_NAME":     c.DBName,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing database settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DSN returns the connection string understood by pgx
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MigrateURL returns the database URL understood by the pgx5 migrate driver
func (c PostgresConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// AMQPConfig addresses the broker reconciliation events are forwarded to.
// An empty URL disables forwarding.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// PlannerConfig bounds the reconciliation engine
type PlannerConfig struct {
	Workers        int
	StorageTimeout time.Duration
	// BatchTimeout is zero unless set; the reconciler then derives it
	BatchTimeout time.Duration
}

// LogConfig selects level and output format of the logger
type LogConfig struct {
	Level  string
	Format string
}

type Config struct {
	Postgres       PostgresConfig
	MigrationsPath string
	AMQP           AMQPConfig
	Planner        PlannerConfig
	Log            LogConfig
}

// Load reads the configuration from the environment. When path is set the
// file is loaded first; a missing file is not an error. Variables already
// set in the environment take precedence over the file.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{
		Postgres: PostgresConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		AMQP: AMQPConfig{
			URL:      os.Getenv("AMQP_URL"),
			Exchange: getEnv("AMQP_EXCHANGE", "bakeplan.events"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: os.Getenv("LOG_FORMAT"),
		},
	}

	var errs []error
	maxConns, err := getInt("DB_MAX_CONNS", 10)
	errs = append(errs, err)
	minConns, err := getInt("DB_MIN_CONNS", 0)
	errs = append(errs, err)
	cfg.Postgres.MaxConns = int32(maxConns)
	cfg.Postgres.MinConns = int32(minConns)
	cfg.Postgres.MaxConnLifetime, err = getDuration("DB_MAX_CONN_LIFETIME", time.Hour)
	errs = append(errs, err)

	cfg.Planner.Workers, err = getInt("PLANNER_WORKERS", 4)
	errs = append(errs, err)
	cfg.Planner.StorageTimeout, err = getDuration("PLANNER_STORAGE_TIMEOUT", 10*time.Second)
	errs = append(errs, err)
	cfg.Planner.BatchTimeout, err = getDuration("PLANNER_BATCH_TIMEOUT", 0)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if cfg.Planner.Workers < 1 {
		return nil, fmt.Errorf("PLANNER_WORKERS must be at least 1, got %d", cfg.Planner.Workers)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
