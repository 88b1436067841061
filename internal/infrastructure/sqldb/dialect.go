// Package sqldb fronts the configured SQL connections behind the database
// gateway port: one dialect strategy per engine, cached schema snapshots,
// and capped, sanitized statement execution.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/core/ports"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// dialect extends the public SQLDialect port with the driver binding and
// schema introspection each engine needs.
type dialect interface {
	ports.SQLDialect
	driverName() string
	introspect(ctx context.Context, db *sql.DB, database string) (domain.SchemaMetadata, error)
}

func dialectFor(name string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DialectPostgres:
		return postgresDialect{}, nil
	case DialectSQLite, "sqlite3":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", name)
	}
}

func buildSQLPrompt(dialectName string, schema domain.SchemaMetadata, question string, maxRows int, notes string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s SQL generator.\n", dialectName)
	b.WriteString("Write one SQL statement answering the question from the schema below.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- single SELECT (or WITH ... SELECT) statement, nothing else\n")
	b.WriteString("- no INSERT, UPDATE, DELETE, DDL, or any statement that modifies data\n")
	b.WriteString("- use only tables and columns present in the schema\n")
	b.WriteString("- all keywords and identifiers in plain English ASCII, whatever language the question is in\n")
	fmt.Fprintf(&b, "- cap the output at %d rows with LIMIT %d\n", maxRows, maxRows)
	if notes != "" {
		b.WriteString(notes)
	}
	fmt.Fprintf(&b, "\nSchema:\n%s\n\nQuestion:\n%s\n", schema.Describe(), question)
	b.WriteString("\nReply with the SQL statement only. No markdown, no explanation.\n")
	return b.String()
}
