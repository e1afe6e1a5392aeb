package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/drewmudry/manimgen-api/models"
)

// NewDBConnection opens the job database named by cfg.DatabaseURL and
// migrates the schema.
func NewDBConnection(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.UsesSQLite() {
		dialector = sqlite.Open(strings.TrimPrefix(cfg.DatabaseURL, "sqlite:"))
	} else {
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.LogLevel == "debug" || cfg.LogLevel == "trace" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying SQL DB: %w", err)
	}
	if cfg.UsesSQLite() {
		// SQLite allows one writer at a time.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("driver", dialector.Name()).Info("Database connected successfully")
	return db, nil
}

// NewRedisClient returns a client for cfg.RedisURL, which may be a bare
// host:port or a redis:// URL.
func NewRedisClient(cfg *Config) (*redis.Client, error) {
	opts := &redis.Options{Addr: cfg.RedisURL}
	if strings.Contains(cfg.RedisURL, "://") {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.WithField("addr", opts.Addr).Info("Redis client initialized")
	return rdb, nil
}
