package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/kiosco/fiados/internal/infrastructure/config"
	"github.com/kiosco/fiados/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand(openPostgres, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openPostgres connects with the FIADOS_DATABASE_* settings. Closing the
// returned migrator also closes the connection.
func openPostgres(log *zap.Logger, migrationsPath string) (migrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Driver == config.DriverSQLite {
		return nil, fmt.Errorf("%w: %s is a sqlite ledger, its schema is built when it is opened",
			migration.ErrUnsupportedDriver, cfg.Database.SQLitePath)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, migration.Config{
		Driver:           cfg.Database.Driver,
		MigrationsPath:   migrationsPath,
		StatementTimeout: cfg.Ledger.TxTimeout,
	}, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("Connected to ledger database",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
		zap.String("migrations_path", migrationsPath),
	)
	return m, nil
}
