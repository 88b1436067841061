package domain

import (
	"fmt"
	"strings"
	"time"
)

// DatabaseQuery is a generated, dialect-specific SQL statement bound to one
// configured connection. Transient; discarded after execution.
type DatabaseQuery struct {
	Database string `json:"database"`
	Dialect  string `json:"dialect"`
	SQL      string `json:"sql"`
}

// DatabaseResult is the outcome of executing one generated statement against
// one database. A failed execution is recorded here, never propagated, so
// sibling databases keep their results.
type DatabaseResult struct {
	Database  string           `json:"database"`
	SQL       string           `json:"sql,omitempty"`
	Columns   []string         `json:"columns,omitempty"`
	Rows      []map[string]any `json:"rows,omitempty"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated,omitempty"`
	Duration  time.Duration    `json:"duration_ms"`
	Error     string           `json:"error,omitempty"`
}

func (r DatabaseResult) Failed() bool {
	return r.Error != ""
}

// MultiDatabaseQueryResult aggregates per-database results plus execution
// metadata for one fan-out. Constructed fresh per query.
type MultiDatabaseQueryResult struct {
	Results   []DatabaseResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Duration  time.Duration    `json:"duration_ms"`
}

// HasRows reports whether at least one database produced data.
func (m MultiDatabaseQueryResult) HasRows() bool {
	for _, r := range m.Results {
		if !r.Failed() && r.RowCount > 0 {
			return true
		}
	}
	return false
}

// FailureNotes returns one human-readable note per failed database.
func (m MultiDatabaseQueryResult) FailureNotes() []string {
	var notes []string
	for _, r := range m.Results {
		if r.Failed() {
			notes = append(notes, fmt.Sprintf("database %q failed: %s", r.Database, r.Error))
		}
	}
	return notes
}

// ColumnMetadata describes one column of an introspected table.
type ColumnMetadata struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

// TableMetadata describes one introspected table.
type TableMetadata struct {
	Name    string           `json:"name"`
	Columns []ColumnMetadata `json:"columns"`
}

// SchemaMetadata is the cached schema snapshot for one configured database,
// refreshed on an interval by the schema cache.
type SchemaMetadata struct {
	Database  string          `json:"database"`
	Dialect   string          `json:"dialect"`
	Tables    []TableMetadata `json:"tables"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Describe renders the schema in the compact one-line-per-table form embedded
// into classification and SQL-generation prompts.
func (s SchemaMetadata) Describe() string {
	if len(s.Tables) == 0 {
		return fmt.Sprintf("%s: no tables", s.Database)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s):\n", s.Database, s.Dialect)
	for _, table := range s.Tables {
		cols := make([]string, 0, len(table.Columns))
		for _, c := range table.Columns {
			cols = append(cols, c.Name+" "+c.DataType)
		}
		fmt.Fprintf(&b, "  %s(%s)\n", table.Name, strings.Join(cols, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
