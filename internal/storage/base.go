package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/routinely/internal/migration"
)

// Base implements every record operation of Provider over database/sql.
// Backends embed it and add their own lifecycle. Queries are written with
// "?" placeholders and rebound for dialects that number them.
type Base struct {
	DB      *sql.DB
	Dialect migration.Dialect
}

func (b *Base) q(query string) string {
	if b.Dialect != migration.Postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// forUpdate locks the selected row on dialects that support it. SQLite
// transactions already hold the write lock from BEGIN.
func (b *Base) forUpdate() string {
	if b.Dialect == migration.Postgres {
		return " FOR UPDATE"
	}
	return ""
}

func (b *Base) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return b.DB.ExecContext(ctx, b.q(query), args...)
}

func (b *Base) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return b.DB.QueryContext(ctx, b.q(query), args...)
}

func (b *Base) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return b.DB.QueryRowContext(ctx, b.q(query), args...)
}

// Stats returns system-wide totals.
func (b *Base) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		dst   *int
		query string
		args  []interface{}
	}{
		{&st.Owners, "SELECT COUNT(DISTINCT owner_id) FROM routines", nil},
		{&st.Routines, "SELECT COUNT(*) FROM routines", nil},
		{&st.Active, "SELECT COUNT(*) FROM routines WHERE is_active = ?", []interface{}{true}},
		{&st.Completions, "SELECT COUNT(*) FROM completion_entries", nil},
		{&st.Tasks, "SELECT COUNT(*) FROM tasks", nil},
		{&st.OpenTasks, "SELECT COUNT(*) FROM tasks WHERE completed = ?", []interface{}{false}},
	}
	for _, c := range counts {
		if err := b.queryRow(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return Stats{}, fmt.Errorf("failed to count: %w", err)
		}
	}
	return st, nil
}

// timestampFormat is fixed width so text columns sort chronologically.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(field, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return t, nil
}

func parseNullTime(field string, s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(field, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}
