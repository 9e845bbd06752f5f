package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/yungbote/unifind-backend/internal/domain"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

type Options struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SQLitePath string
	MaxConns   int
}

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger, opts Options) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "sqlite":
		path := opts.SQLitePath
		if path == "" {
			path = "unifind.db"
		}
		serviceLog.Info("Opening SQLite store", "path", path)
		dialector = sqlite.Open(path)
	case "", "postgres":
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", opts.User, opts.Password, opts.Host, opts.Port, opts.Name)
		serviceLog.Info("Connecting to Postgres...", "host", opts.Host, "database", opts.Name)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		serviceLog.Error("Failed to open store", "error", err)
		return nil, fmt.Errorf("open store: %w", err)
	}
	if opts.MaxConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("store pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(opts.MaxConns)
	}
	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating store tables...")
	if err := AutoMigrate(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

// AutoMigrate creates or updates every table the indexer reads or writes.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Owner{},
		&types.LinkedAccount{},
		&types.IndexedRecord{},
	)
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

func (s *PostgresService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
