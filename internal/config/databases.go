package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DatabaseConnection is one entry of the YAML connections file. Dialect names
// are validated later, when the gateway resolves its strategy.
type DatabaseConnection struct {
	Name                string   `yaml:"name"`
	Dialect             string   `yaml:"dialect"`
	DSN                 string   `yaml:"dsn"`
	MaxRows             int      `yaml:"max_rows"`
	QueryTimeoutSeconds int      `yaml:"query_timeout_seconds"`
	SensitiveColumns    []string `yaml:"sensitive_columns"`
}

type databasesFile struct {
	Databases []DatabaseConnection `yaml:"databases"`
}

// LoadDatabases reads the database connections file. An empty path means no
// databases are configured, which is a valid document-only deployment; an
// unreadable or malformed file is a configuration error and fails startup.
func LoadDatabases(path string) ([]DatabaseConnection, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read databases file: %w", err)
	}

	var parsed databasesFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse databases file: %w", err)
	}

	for i, db := range parsed.Databases {
		if db.Name == "" {
			return nil, fmt.Errorf("databases[%d]: name is required", i)
		}
		if db.Dialect == "" {
			return nil, fmt.Errorf("database %q: dialect is required", db.Name)
		}
		if db.DSN == "" {
			return nil, fmt.Errorf("database %q: dsn is required", db.Name)
		}
	}
	return parsed.Databases, nil
}
