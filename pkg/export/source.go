package export

import "context"

// Row is one result row keyed by the column names the source reported.
type Row map[string]any

// ResultSet is the tabular result of one query. Columns preserves the
// source's column order so required-column checks work on empty results.
type ResultSet struct {
	Columns []string
	Rows    []Row
}

// Source executes parametrized queries against the relational system the
// package is exported from. Connection and credential resolution live
// behind the implementation (see pkg/source/postgres).
type Source interface {
	Query(ctx context.Context, query string, args ...any) (*ResultSet, error)
}
