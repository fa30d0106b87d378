// Package storage defines the row-oriented read contract the query
// layer consumes, plus the SQL implementation and the schema/loader
// helpers used to build a schedule database.
package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Store is the pull-only read surface of a schedule database. Queries
// are written in SQL with ? placeholders; implementations rebind them
// for their driver.
type Store interface {
	// Get runs the query and returns the first row, or (nil, nil)
	// when nothing matches.
	Get(ctx context.Context, query string, args ...any) (Row, error)

	// Select runs the query and returns all rows, in result order.
	Select(ctx context.Context, query string, args ...any) ([]Row, error)

	// ID distinguishes this store from others in the same process,
	// so cached results never leak across databases.
	ID() string
}

// Row is a single result row with untyped columns by name. Drivers
// differ in how they surface values (string, []byte, int64, float64,
// bool, nil), so the accessors coerce instead of asserting.
type Row map[string]any

// Has reports whether the column is present and non-NULL.
func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (r Row) Int(col string) int {
	return int(r.Int64(col))
}

func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return parseInt64(v)
	case []byte:
		return parseInt64(string(v))
	default:
		return 0
	}
}

func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		return f
	default:
		return 0
	}
}

func (r Row) Bool(col string) bool {
	return r.Int64(col) != 0
}

func parseInt64(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	// Some sources store integer columns as "1.0".
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// StoreError wraps a driver failure with the query that caused it.
type StoreError struct {
	Query string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store query %q: %v", e.Query, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
