// Package duckdb loads observation vintages from a DuckDB database. Each
// vintage table holds one timestamp column followed by one column per
// variable, NULL marking a missing entry.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/peter-kozarec/kestrel/pkg/dataset"
)

type Reader struct {
	dataSourceName string
	db             *sql.DB
}

func NewReader(dataSourceName string) *Reader {
	return &Reader{
		dataSourceName: dataSourceName,
	}
}

func (r *Reader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() {
	_ = r.db.Close()
}

// LoadVintage reads the named variables between from and to (inclusive)
// into a dataset, ordered by timestamp.
func (r *Reader) LoadVintage(ctx context.Context, table string, vars []string, from, to time.Time) (*dataset.Dataset, error) {
	query := fmt.Sprintf(`SELECT ts, %s FROM %s WHERE ts BETWEEN ? AND ? ORDER BY ts`,
		strings.Join(vars, ", "), table)

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("error preparing query: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := dataset.New(vars...)
	for rows.Next() {
		ts := time.Time{}
		cells := make([]sql.NullFloat64, len(vars))
		dest := make([]interface{}, 0, len(vars)+1)
		dest = append(dest, &ts)
		for i := range cells {
			dest = append(dest, &cells[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}

		values := make([]dataset.Value, len(vars))
		for i, c := range cells {
			if c.Valid {
				values[i] = dataset.FromFloat(c.Float64)
			} else {
				values[i] = dataset.Missing()
			}
		}
		if err := out.Append(ts, values...); err != nil {
			return nil, fmt.Errorf("error appending observation: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning rows: %w", err)
	}
	return out, nil
}
