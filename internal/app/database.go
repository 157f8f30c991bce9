package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpq" // Registers "nrpostgres" driver
	"github.com/newrelic/go-agent/v3/newrelic"

	"paycollect/internal/config"
	"paycollect/internal/repository"
	"paycollect/internal/repository/postgres"
	"paycollect/internal/repository/sqlite"
)

// Store is an open payment store.
type Store struct {
	DB       *sql.DB
	Payments repository.PaymentRepository
	driver   string
}

// Migrate creates the store's schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s.driver == config.DriverSQLite {
		return sqlite.Migrate(ctx, s.DB)
	}
	return postgres.Migrate(ctx, s.DB)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// OpenStore opens the payment store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, nrApp *newrelic.Application) (*Store, error) {
	if cfg.Driver == config.DriverSQLite {
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Store{DB: db, Payments: sqlite.NewPaymentRepository(db), driver: cfg.Driver}, nil
	}

	db, err := NewDatabase(ctx, cfg, nrApp)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db, Payments: postgres.NewPaymentRepository(db), driver: config.DriverPostgres}, nil
}

// NewDatabase creates a new PostgreSQL connection pool.
// If nrApp is provided, it uses the New Relic instrumented driver for automatic SQL tracing.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig, nrApp *newrelic.Application) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	driverName := "postgres"
	if nrApp != nil {
		driverName = "nrpostgres"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database with %s: %w", driverName, err)
	}

	// Payment traffic is bursty but light; every request holds a connection only briefly.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
