package storage

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name        string
	Driver      string
	Placeholder sq.PlaceholderFormat
	idColumn    string
	timeType    string
	floatType   string
}

var (
	// SQLite is the embedded single-file backend.
	SQLite = Dialect{
		Name:        "sqlite",
		Driver:      "sqlite3",
		Placeholder: sq.Question,
		idColumn:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		timeType:    "TIMESTAMP",
		floatType:   "REAL",
	}
	// Postgres is the server backend.
	Postgres = Dialect{
		Name:        "postgres",
		Driver:      "postgres",
		Placeholder: sq.Dollar,
		idColumn:    "BIGSERIAL PRIMARY KEY",
		timeType:    "TIMESTAMPTZ",
		floatType:   "DOUBLE PRECISION",
	}
)

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (d Dialect) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}
