package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"price-recommender/utils"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

var (
	identRegexp       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	placeholderRegexp = regexp.MustCompile(`\$\d+`)
)

// Dialect captures the DDL and placeholder differences between drivers.
type Dialect struct {
	Name      string
	AutoID    string
	Timestamp string
}

var (
	postgresDialect = Dialect{Name: "postgres", AutoID: "BIGSERIAL PRIMARY KEY", Timestamp: "TIMESTAMPTZ"}
	sqliteDialect   = Dialect{Name: "sqlite", AutoID: "INTEGER PRIMARY KEY AUTOINCREMENT", Timestamp: "TIMESTAMP"}
)

// Rebind rewrites $N placeholders for drivers that only take '?'.
// Queries must use each placeholder once, in order.
func (d Dialect) Rebind(query string) string {
	if d.Name == "postgres" {
		return query
	}
	return placeholderRegexp.ReplaceAllString(query, "?")
}

// DB is an open database handle shared by the stage stores of one command.
// The command that opens it closes it.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the given driver ("postgres" or "sqlite") and pings it,
// retrying the ping with back-off while the server comes up.
func Open(driver, dsn string, retry *utils.RetryConfig) (*DB, error) {
	var dialect Dialect
	switch driver {
	case "postgres":
		dialect = postgresDialect
	case "sqlite":
		dialect = sqliteDialect
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("sqlite: create data dir: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}
	if driver == "sqlite" {
		// One connection: sqlite has a single writer and :memory: is per-connection.
		db.SetMaxOpenConns(1)
	}

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	err = retry.Do(driver+"-ping", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", driver, err)
	}

	return &DB{db: db, dialect: dialect}, nil
}

// Dialect reports the SQL dialect of the connection.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) Close() error {
	return d.db.Close()
}

// withTx runs fn in a transaction, committing only if fn returns nil.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", d.dialect.Name, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", d.dialect.Name, err)
	}
	return nil
}

func (d *DB) exec(ctx context.Context, query string, args ...any) error {
	_, err := d.db.ExecContext(ctx, d.dialect.Rebind(query), args...)
	return err
}

func (d *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, d.dialect.Rebind(query), args...)
}

func (d *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, d.dialect.Rebind(query), args...)
}

func validateTable(name string) error {
	if !identRegexp.MatchString(name) {
		return fmt.Errorf("storage: invalid table name %q", name)
	}
	return nil
}

const insertBatchSize = 50

// insertRows batch-inserts rows inside tx using multi-row VALUES lists.
func (d *DB) insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	for i := 0; i < len(rows); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := d.insertBatch(ctx, tx, table, columns, rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) insertBatch(ctx context.Context, tx *sql.Tx, table string, columns []string, batch [][]any) error {
	width := len(columns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*width)

	for idx, row := range batch {
		base := idx * width
		ph := make([]string, width)
		for c := range ph {
			ph[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs, row...)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES %s`,
		table, strings.Join(columns, ", "), strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, d.dialect.Rebind(query), valueArgs...); err != nil {
		return fmt.Errorf("%s: insert into %s: %w", d.dialect.Name, table, err)
	}
	return nil
}
