package blob

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// pgOpTimeout bounds each database call.
const pgOpTimeout = 10 * time.Second

// PostgresBackend stores each collection blob in one row of a blobs table
// with a monotonically increasing generation column. WriteIf compares the
// generation inside the UPDATE, so the database arbitrates concurrent
// writers natively.
type PostgresBackend struct {
	db *sql.DB
}

var _ Backend = (*PostgresBackend)(nil)

// NewPostgresBackend opens a connection to the database at the given URL,
// configures the connection pool, and runs any pending migrations.
func NewPostgresBackend(databaseURL string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresBackend{db: db}, nil
}

// NewPostgresBackendFromDB wraps an existing connection without running
// migrations. Used by tests.
func NewPostgresBackendFromDB(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

// Read returns the blob at name. A row that has never been written is
// ErrNotFound; any other database failure is transient.
func (b *PostgresBackend) Read(ctx context.Context, name string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, pgOpTimeout)
	defer cancel()

	var (
		data       []byte
		generation int64
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT data, generation FROM blobs WHERE name = $1`, name,
	).Scan(&data, &generation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("pg read %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, "", markTransient(fmt.Errorf("pg read %s: %w", name, err))
	}
	return data, strconv.FormatInt(generation, 10), nil
}

// Write unconditionally replaces the blob at name, bumping its generation.
func (b *PostgresBackend) Write(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, pgOpTimeout)
	defer cancel()

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO blobs (name, data, generation, updated_at)
		 VALUES ($1, $2, 1, now())
		 ON CONFLICT (name)
		 DO UPDATE SET data = EXCLUDED.data, generation = blobs.generation + 1, updated_at = now()`,
		name, data)
	if err != nil {
		return markTransient(fmt.Errorf("pg write %s: %w", name, err))
	}
	return nil
}

// WriteIf replaces the blob at name only while its generation still matches.
// An empty generation demands that the row not exist yet.
func (b *PostgresBackend) WriteIf(ctx context.Context, name string, data []byte, generation string) error {
	ctx, cancel := context.WithTimeout(ctx, pgOpTimeout)
	defer cancel()

	if generation == "" {
		res, err := b.db.ExecContext(ctx,
			`INSERT INTO blobs (name, data, generation, updated_at)
			 VALUES ($1, $2, 1, now())
			 ON CONFLICT (name) DO NOTHING`,
			name, data)
		if err != nil {
			return markTransient(fmt.Errorf("pg conditional insert %s: %w", name, err))
		}
		return checkAffected(res, name)
	}

	gen, err := strconv.ParseInt(generation, 10, 64)
	if err != nil {
		return fmt.Errorf("pg conditional write %s: bad generation %q: %w", name, generation, err)
	}

	res, err := b.db.ExecContext(ctx,
		`UPDATE blobs SET data = $2, generation = generation + 1, updated_at = now()
		 WHERE name = $1 AND generation = $3`,
		name, data, gen)
	if err != nil {
		return markTransient(fmt.Errorf("pg conditional write %s: %w", name, err))
	}
	return checkAffected(res, name)
}

func checkAffected(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return markTransient(fmt.Errorf("pg rows affected %s: %w", name, err))
	}
	if n == 0 {
		return fmt.Errorf("pg conditional write %s: %w", name, ErrPreconditionFailed)
	}
	return nil
}
