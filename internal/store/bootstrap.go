package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Bootstrap creates the _blobs and _events tables. Safe to run on every
// start-up.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, ddl := range []struct{ table, sql string }{
		{"_blobs", s.Dialect.BlobTableSQL()},
		{"_events", s.Dialect.EventTableSQL()},
	} {
		for _, stmt := range splitStatements(ddl.sql) {
			if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create %s table: %w", ddl.table, err)
			}
		}
	}
	log.Debug().Str("dialect", s.Dialect.Name()).Msg("system tables ready")
	return nil
}

func splitStatements(ddl string) []string {
	var out []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
