package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strconv"
	"strings"

	"healthline-api/internal/config"
	"healthline-api/migrations"
	"healthline-api/pkg/logger"
	"healthline-api/pkg/utils"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

// Usage:
//
//	migrate            apply all pending migrations
//	migrate down       roll back one migration
//	migrate force <v>  mark version v as applied after a failed run
func main() {
	_ = godotenv.Load()
	log := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

	dsn, err := databaseDSN()
	if err != nil {
		log.Error("database config", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(context.Background(), "pgx", dsn, utils.PostgresPoolConfig{MaxOpenConns: 2})
	if err != nil {
		log.Error("open db", "err", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	m, err := newMigrator(db)
	if err != nil {
		log.Error("create migrator", "err", err)
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	args := os.Args[1:]
	switch {
	case len(args) >= 2 && args[0] == "force":
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Error("invalid version", "value", args[1])
			os.Exit(2)
		}
		if err := m.Force(version); err != nil {
			log.Error("force version", "err", err)
			os.Exit(1)
		}
		log.Info("forced migration version", "version", version)
	case len(args) >= 1 && args[0] == "down":
		if err := m.Steps(-1); err != nil {
			log.Error("migrate down", "err", err)
			os.Exit(1)
		}
		log.Info("rolled back one migration")
	default:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Error("migrate up", "err", err)
			os.Exit(1)
		}
		log.Info("migrations complete")
	}
}

// databaseDSN prefers DATABASE_URL and falls back to the DB_* variables.
func databaseDSN() (string, error) {
	if url := strings.TrimSpace(os.Getenv("DATABASE_URL")); url != "" {
		return url, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if !cfg.HasDatabase() {
		return "", errors.New("DATABASE_URL or DB_HOST is required")
	}
	return cfg.PostgresDSN(), nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
}
