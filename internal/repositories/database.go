package repository

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/priyanshu-sharma/storefront/internal/config"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	_ "github.com/lib/pq"
)

// Store owns the Postgres connection pool shared by the SQL-backed
// repositories. Cart snapshots live in Redis, not here.
type Store struct {
	DB       *sql.DB
	Products ProductRepository
	Orders   OrderRepository
}

func New(cfg *config.Config) (*Store, error) {

	db, err := otelsql.Open("postgres", cfg.Database.GetDSN(),
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	// Test the connection to make sure DB is reachable
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{
		DB:       db,
		Products: NewProductRepo(db),
		Orders:   NewOrderRepo(db),
	}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
