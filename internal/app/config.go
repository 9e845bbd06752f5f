package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/unifind-backend/internal/crawler"
	"github.com/yungbote/unifind-backend/internal/db"
	"github.com/yungbote/unifind-backend/internal/observability"
	"github.com/yungbote/unifind-backend/internal/platform/envutil"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

const (
	SearchBackendRedis  = "redis"
	SearchBackendMemory = "memory"
	SearchBackendNone   = "none"
)

type Config struct {
	HTTPAddr     string
	JWTSecretKey string
	CORSOrigins  []string

	DB db.Options

	SearchBackend string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	IndexName     string

	WorkerConcurrency int
	WorkerQueueSize   int

	SchedulerEnabled bool
	LocalInterval    time.Duration
	CloudInterval    time.Duration
	LocalRoots       []string
	WatchEnabled     bool
	ExcludeDirs      []string
	ExcludeFiles     []string

	PagesPerSecond float64

	MetricsEnabled bool
	Tracing        observability.TracingConfig
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE. Only the
// list-valued settings live there; a present key replaces the env value.
type fileConfig struct {
	LocalRoots   []string `yaml:"local_roots"`
	ExcludeDirs  []string `yaml:"exclude_dirs"`
	ExcludeFiles []string `yaml:"exclude_files"`
	CORSOrigins  []string `yaml:"cors_origins"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		HTTPAddr:     envutil.String("HTTP_ADDR", ":8080", log),
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", "", log),
		CORSOrigins:  envutil.List("CORS_ORIGINS", nil, log),
		DB: db.Options{
			Driver:     envutil.String("DB_DRIVER", "postgres", log),
			Host:       envutil.String("POSTGRES_HOST", "localhost", log),
			Port:       envutil.String("POSTGRES_PORT", "5432", log),
			User:       envutil.String("POSTGRES_USER", "postgres", log),
			Password:   envutil.String("POSTGRES_PASSWORD", "", log),
			Name:       envutil.String("POSTGRES_NAME", "unifind", log),
			SQLitePath: envutil.String("SQLITE_PATH", "unifind.db", log),
			MaxConns:   envutil.Int("DB_MAX_CONNS", 0, log),
		},
		SearchBackend:     strings.ToLower(envutil.String("SEARCH_BACKEND", SearchBackendRedis, log)),
		RedisAddr:         envutil.String("REDIS_ADDR", "localhost:6379", log),
		RedisPassword:     envutil.String("REDIS_PASSWORD", "", log),
		RedisDB:           envutil.Int("REDIS_DB", 0, log),
		IndexName:         envutil.String("SEARCH_INDEX_NAME", "file_index", log),
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 5, log),
		WorkerQueueSize:   envutil.Int("WORKER_QUEUE_SIZE", 1024, log),
		SchedulerEnabled:  envutil.Bool("SCHEDULER_ENABLED", true, log),
		LocalInterval:     envutil.Seconds("LOCAL_SYNC_INTERVAL_SECONDS", time.Hour, log),
		CloudInterval:     envutil.Seconds("CLOUD_SYNC_INTERVAL_SECONDS", time.Hour, log),
		LocalRoots:        envutil.List("LOCAL_ROOTS", defaultRoots(), log),
		WatchEnabled:      envutil.Bool("LOCAL_WATCH_ENABLED", false, log),
		ExcludeDirs:       envutil.List("EXCLUDE_DIRS", crawler.DefaultExcludeDirs, log),
		ExcludeFiles:      envutil.List("EXCLUDE_FILES", crawler.DefaultExcludeFiles, log),
		PagesPerSecond:    envutil.Float("PROVIDER_PAGES_PER_SECOND", 5, log),
		MetricsEnabled:    envutil.Bool("METRICS_ENABLED", true, log),
		Tracing: observability.TracingConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "unifind", log),
			Environment: envutil.String("OTEL_ENVIRONMENT", envutil.String("LOG_MODE", "development", nil), log),
			Version:     envutil.String("OTEL_SERVICE_VERSION", "", log),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", nil)),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 1, log),
		},
	}

	if path := envutil.String("CONFIG_FILE", "", log); path != "" {
		if err := cfg.overlay(path); err != nil {
			return cfg, err
		}
		log.Info("Applied config file", "path", path)
	}
	return cfg, cfg.validate()
}

func (c *Config) overlay(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.LocalRoots != nil {
		c.LocalRoots = fc.LocalRoots
	}
	if fc.ExcludeDirs != nil {
		c.ExcludeDirs = fc.ExcludeDirs
	}
	if fc.ExcludeFiles != nil {
		c.ExcludeFiles = fc.ExcludeFiles
	}
	if fc.CORSOrigins != nil {
		c.CORSOrigins = fc.CORSOrigins
	}
	return nil
}

func (c Config) validate() error {
	switch c.SearchBackend {
	case SearchBackendRedis, SearchBackendMemory, SearchBackendNone:
	default:
		return fmt.Errorf("unsupported SEARCH_BACKEND %q", c.SearchBackend)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.WorkerConcurrency)
	}
	if c.WorkerQueueSize < 1 {
		return fmt.Errorf("WORKER_QUEUE_SIZE must be positive, got %d", c.WorkerQueueSize)
	}
	return nil
}

func defaultRoots() []string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return nil
	}
	return []string{home}
}
