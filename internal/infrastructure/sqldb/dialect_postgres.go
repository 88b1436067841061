package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/unimind/uniquery/internal/core/domain"
)

type postgresDialect struct{}

func (postgresDialect) Name() string { return DialectPostgres }

func (postgresDialect) driverName() string { return "pgx" }

func (postgresDialect) BuildSQLPrompt(schema domain.SchemaMetadata, question string, maxRows int) string {
	notes := "- quote mixed-case identifiers with double quotes\n" +
		"- prefer ILIKE for case-insensitive text matching\n"
	return buildSQLPrompt(DialectPostgres, schema, question, maxRows, notes)
}

func (postgresDialect) ValidateSQL(sqlText string) error {
	return validateStatement(sqlText)
}

func (postgresDialect) introspect(ctx context.Context, db *sql.DB, database string) (domain.SchemaMetadata, error) {
	meta := domain.SchemaMetadata{Database: database, Dialect: DialectPostgres}

	rows, err := db.QueryContext(ctx, `
SELECT table_name, column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position
`)
	if err != nil {
		return meta, fmt.Errorf("introspect %s: %w", database, err)
	}
	defer rows.Close()

	byTable := map[string]int{}
	for rows.Next() {
		var table, column, dataType, nullable string
		if err := rows.Scan(&table, &column, &dataType, &nullable); err != nil {
			return meta, fmt.Errorf("scan column row: %w", err)
		}

		idx, ok := byTable[table]
		if !ok {
			idx = len(meta.Tables)
			byTable[table] = idx
			meta.Tables = append(meta.Tables, domain.TableMetadata{Name: table})
		}
		meta.Tables[idx].Columns = append(meta.Tables[idx].Columns, domain.ColumnMetadata{
			Name:     column,
			DataType: dataType,
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return meta, fmt.Errorf("read column rows: %w", err)
	}
	return meta, nil
}
