package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"formcraft/internal/instrument"
)

var eventColumns = []string{
	"trace_id", "span_id", "parent_span_id", "kind", "source", "component",
	"action", "form_id", "user_id", "duration_ms", "status", "metadata",
}

// EventSink writes flushed trace events to the _events table.
type EventSink struct {
	store *Store
}

func NewEventSink(s *Store) *EventSink {
	return &EventSink{store: s}
}

// WriteEvents inserts the batch in one statement inside a transaction.
func (e *EventSink) WriteEvents(ctx context.Context, batch []instrument.Event) error {
	if len(batch) == 0 {
		return nil
	}
	d := e.store.Dialect

	placeholders := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*len(eventColumns))
	for i, ev := range batch {
		offset := i * len(eventColumns)
		ph := make([]string, len(eventColumns))
		for j := range eventColumns {
			ph[j] = d.Placeholder(offset + j + 1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")

		var meta any
		if len(ev.Metadata) > 0 {
			b, err := json.Marshal(ev.Metadata)
			if err != nil {
				return fmt.Errorf("encode event metadata: %w", err)
			}
			meta = string(b)
		}
		args = append(args,
			ev.TraceID, ev.SpanID, nullable(ev.ParentSpanID), ev.Kind, ev.Source, ev.Component,
			ev.Action, nullable(ev.FormID), nullable(ev.User), ev.DurationMs, nullable(ev.Status), meta)
	}

	q := fmt.Sprintf("INSERT INTO _events (%s) VALUES %s",
		strings.Join(eventColumns, ", "), strings.Join(placeholders, ", "))

	tx, err := e.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert events: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit events: %w", err)
	}
	return nil
}

// CleanupOldEvents deletes events older than retentionDays.
func (e *EventSink) CleanupOldEvents(ctx context.Context, retentionDays int) (int64, error) {
	d := e.store.Dialect
	q := fmt.Sprintf("DELETE FROM _events WHERE %s", d.IntervalDeleteExpr("created_at", 1))
	n, err := Exec(ctx, e.store.DB, q, fmt.Sprintf("%d", retentionDays))
	if err != nil {
		return 0, fmt.Errorf("event cleanup: %w", err)
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Int("retention_days", retentionDays).Msg("event cleanup")
	}
	return n, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
