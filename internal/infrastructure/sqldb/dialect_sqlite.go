package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/unimind/uniquery/internal/core/domain"
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return DialectSQLite }

func (sqliteDialect) driverName() string { return "sqlite3" }

func (sqliteDialect) BuildSQLPrompt(schema domain.SchemaMetadata, question string, maxRows int) string {
	notes := "- sqlite has no ILIKE, use LIKE (it is case-insensitive for ASCII)\n" +
		"- dates are stored as TEXT, compare with strftime or plain string ordering\n"
	return buildSQLPrompt(DialectSQLite, schema, question, maxRows, notes)
}

func (sqliteDialect) ValidateSQL(sqlText string) error {
	return validateStatement(sqlText)
}

func (sqliteDialect) introspect(ctx context.Context, db *sql.DB, database string) (domain.SchemaMetadata, error) {
	meta := domain.SchemaMetadata{Database: database, Dialect: DialectSQLite}

	rows, err := db.QueryContext(ctx, `
SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name
`)
	if err != nil {
		return meta, fmt.Errorf("introspect %s: %w", database, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return meta, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return meta, fmt.Errorf("read table rows: %w", err)
	}

	for _, table := range tables {
		columns, err := sqliteTableColumns(ctx, db, table)
		if err != nil {
			return meta, err
		}
		meta.Tables = append(meta.Tables, domain.TableMetadata{Name: table, Columns: columns})
	}
	return meta, nil
}

func sqliteTableColumns(ctx context.Context, db *sql.DB, table string) ([]domain.ColumnMetadata, error) {
	quoted := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoted))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []domain.ColumnMetadata
	for rows.Next() {
		var (
			cid          int
			name, ctype  string
			notNull, pk  int
			defaultValue sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info row: %w", err)
		}
		columns = append(columns, domain.ColumnMetadata{
			Name:     name,
			DataType: strings.ToLower(ctype),
			Nullable: notNull == 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read table_info rows: %w", err)
	}
	return columns, nil
}
