package store

import "fmt"

// Dialect covers the SQL differences between the supported databases.
type Dialect interface {
	// Name returns "postgres" or "sqlite".
	Name() string

	// DriverName returns the database/sql driver name ("pgx" or "sqlite").
	DriverName() string

	// Placeholder returns the parameter placeholder for the given 1-based index.
	Placeholder(index int) string

	// NowExpr returns the SQL expression for the current timestamp.
	NowExpr() string

	// BlobTableSQL returns the DDL for the _blobs table.
	BlobTableSQL() string

	// EventTableSQL returns the DDL for the _events table.
	EventTableSQL() string

	// IntervalDeleteExpr returns a WHERE condition matching rows whose
	// column is older than the number of days bound at placeholder index.
	IntervalDeleteExpr(column string, index int) string

	// MapError inspects a driver error and returns a well-known sentinel error if applicable.
	MapError(err error) error
}

// NewDialect creates a Dialect for the given driver name ("postgres" or "sqlite").
func NewDialect(driver string) Dialect {
	switch driver {
	case "sqlite":
		return &SQLiteDialect{}
	default:
		return &PostgresDialect{}
	}
}

// upsertBlobSQL builds the insert-or-replace statement for one blob.
func upsertBlobSQL(d Dialect) string {
	return fmt.Sprintf(
		"INSERT INTO _blobs (key, value, updated_at) VALUES (%s, %s, %s) "+
			"ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = %s",
		d.Placeholder(1), d.Placeholder(2), d.NowExpr(), d.NowExpr())
}
