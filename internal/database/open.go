package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"toolrent-backend/internal/config"
	"toolrent-backend/internal/logger"
	"toolrent-backend/internal/repository"
	"toolrent-backend/internal/repository/memory"
	"toolrent-backend/internal/repository/postgres"

	_ "github.com/lib/pq"
)

// Connect opens and pings the configured PostgreSQL database.
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	logger.Debug("Connecting to database...",
		"connection", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established", "host", cfg.Database.Host, "database", cfg.Database.Database)
	return db, nil
}

// OpenStore builds the store selected by database.driver. With postgres and
// auto_migrate set, pending migrations are applied first.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using in-memory store: data is lost on restart")
		return memory.NewStore(), nil
	}

	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if _, err := NewMigrator(db).Run(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return postgres.NewStore(db), nil
}
