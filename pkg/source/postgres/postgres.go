// Package postgres adapts a Postgres database to the exporter's Source
// interface. Credentials stay outside this package: callers hand in a
// complete DSN resolved from their own secret storage.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/calvoindustrial/companydata/pkg/export"
)

type DB struct {
	db *gorm.DB
}

// Open connects and pings within a short timeout so a bad DSN fails fast
// instead of at the first export query.
func Open(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve sql db handle: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Query runs one parametrized query and materializes the full result set.
// Export tables are bounded snapshot-sized reads, so buffering them is
// acceptable.
func (d *DB) Query(
	ctx context.Context, query string, args ...any,
) (*export.ResultSet, error) {
	rows, err := d.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, describeErr(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	rs := &export.ResultSet{Columns: cols}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(export.Row, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(vals[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, describeErr(err)
	}
	return rs, nil
}

// describeErr surfaces the server-side error code when the driver
// provides one; "42P01 relation does not exist" beats a bare string when
// an export config points at the wrong schema.
func describeErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf(
			"postgres %s: %s: %w", pgErr.Code, pgErr.Message, err,
		)
	}
	return err
}

// normalizeValue unwraps driver types into the plain values the export
// mapping layer understands.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
}
