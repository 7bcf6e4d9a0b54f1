package postgres

import (
	"fmt"
	"time"

	"github.com/sifan077/hyperindex/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// zapWriter routes GORM's logger output through zap.
type zapWriter struct {
	log *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.log.Warnf(format, args...)
}

// NewGorm returns a gorm.DB for the write path. Pool limits mirror the pgx pool settings.
func NewGorm(cfg config.PostgresConfig, log *zap.Logger) (*gorm.DB, error) {
	settings, err := parsePoolSettings(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	gormLogger := logger.New(zapWriter{log: log.Named("gorm").Sugar()}, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(ConnString(cfg)), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: retrieve sql db: %w", err)
	}

	if settings.maxConns > 0 {
		sqlDB.SetMaxOpenConns(int(settings.maxConns))
	}
	if settings.minConns > 0 {
		sqlDB.SetMaxIdleConns(int(settings.minConns))
	}
	lifetime := settings.maxConnLifetime
	if lifetime == 0 {
		lifetime = 5 * time.Minute
	}
	sqlDB.SetConnMaxLifetime(lifetime)
	if settings.maxConnIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(settings.maxConnIdleTime)
	}

	return db, nil
}
