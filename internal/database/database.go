package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Service owns the connection pool for the note store. One instance is
// shared by the whole process; individual requests ride their own context.
type Service interface {
	DB() *pgxpool.Pool
	Ready(ctx context.Context) bool
	Health(ctx context.Context) map[string]string
	Close()
}

type service struct {
	db *pgxpool.Pool
}

// New applies pending migrations and opens the connection pool.
func New(ctx context.Context, databaseURL string) (Service, error) {
	if err := runMigrations(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("error creating connection pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error connecting to database: %v", err)
	}
	return &service{db: pool}, nil
}

// runMigrations uses a short-lived database/sql handle; the pool the
// service hands out is pgx-native.
func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("error opening migration connection: %v", err)
	}
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("error preparing migration driver: %v", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("error loading embedded migrations: %v", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		return fmt.Errorf("error initializing migrations: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error applying migrations: %v", err)
	}
	return nil
}

func (s *service) DB() *pgxpool.Pool {
	return s.db
}

// Ready issues a trivial query and reports whether the store answers.
func (s *service) Ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var one int
	return s.db.QueryRow(ctx, "SELECT 1").Scan(&one) == nil
}

func (s *service) Health(ctx context.Context) map[string]string {
	status := "up"
	if !s.Ready(ctx) {
		status = "down"
	}
	stats := s.db.Stat()
	return map[string]string{
		"status":      status,
		"total_conns": strconv.FormatInt(int64(stats.TotalConns()), 10),
		"idle_conns":  strconv.FormatInt(int64(stats.IdleConns()), 10),
		"in_use":      strconv.FormatInt(int64(stats.AcquiredConns()), 10),
	}
}

func (s *service) Close() {
	s.db.Close()
}
