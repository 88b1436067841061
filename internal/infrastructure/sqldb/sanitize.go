package sqldb

import "strings"

const maskedValue = "***"

// Built-in name fragments that mark a column as sensitive regardless of
// per-connection configuration.
var sensitiveFragments = []string{"password", "secret", "token", "api_key", "ssn", "card"}

func isSensitiveColumn(column string, configured []string) bool {
	lower := strings.ToLower(column)
	for _, name := range configured {
		if lower == strings.ToLower(name) {
			return true
		}
	}
	for _, fragment := range sensitiveFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// sanitizeRows masks values of sensitive columns in place and returns the
// names of the columns that were masked.
func sanitizeRows(columns []string, rows []map[string]any, configured []string) []string {
	var masked []string
	for _, column := range columns {
		if !isSensitiveColumn(column, configured) {
			continue
		}
		masked = append(masked, column)
		for _, row := range rows {
			if _, ok := row[column]; ok {
				row[column] = maskedValue
			}
		}
	}
	return masked
}
