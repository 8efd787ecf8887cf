package main

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/odyssey-accounts/migrations"
)

const usage = "usage: migrate [up|down|force <version>|version]"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found")
	}
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		logger.Error("PG_DSN must be set")
		os.Exit(1)
	}
	if len(os.Args) < 2 {
		logger.Error(usage)
		os.Exit(2)
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logger.Error("open migration source", slog.Any("error", err))
		os.Exit(1)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, driverURL(dsn))
	if err != nil {
		logger.Error("init migrations", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("close migrations", slog.Any("source_error", srcErr), slog.Any("db_error", dbErr))
		}
	}()

	if err := run(m, os.Args[1:], logger); err != nil {
		logger.Error("migrate "+os.Args[1], slog.Any("error", err))
		os.Exit(1)
	}
}

func run(m *migrate.Migrate, args []string, logger *slog.Logger) error {
	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		logger.Info("migrations applied")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		logger.Info("migrations reverted")
	case "force":
		if len(args) < 2 {
			return errors.New("force requires a version argument")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		if err := m.Force(version); err != nil {
			return err
		}
		logger.Info("migration version forced", slog.Int("version", version))
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		logger.Info("current version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	default:
		return errors.New(usage)
	}
	return nil
}

// driverURL switches a postgres DSN to the pgx/v5 migrate driver scheme.
func driverURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
