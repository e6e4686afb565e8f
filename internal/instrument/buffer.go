package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sink receives flushed batches.
type Sink interface {
	WriteEvents(ctx context.Context, batch []Event) error
}

// LogSink writes each event as one structured log line.
type LogSink struct {
	Logger zerolog.Logger
	Level  zerolog.Level
}

func (s LogSink) WriteEvents(_ context.Context, batch []Event) error {
	for _, e := range batch {
		entry := s.Logger.WithLevel(s.Level).
			Str("trace_id", e.TraceID).
			Str("span_id", e.SpanID).
			Str("kind", e.Kind).
			Str("source", e.Source).
			Str("component", e.Component).
			Str("action", e.Action)
		if e.ParentSpanID != "" {
			entry = entry.Str("parent_span_id", e.ParentSpanID)
		}
		if e.FormID != "" {
			entry = entry.Str("form_id", e.FormID)
		}
		if e.User != "" {
			entry = entry.Str("user", e.User)
		}
		if e.Status != "" {
			entry = entry.Str("status", e.Status)
		}
		if e.Kind == "span" {
			entry = entry.Float64("duration_ms", e.DurationMs)
		}
		if len(e.Metadata) > 0 {
			entry = entry.Interface("metadata", e.Metadata)
		}
		entry.Time("at", e.CreatedAt).Msg("trace")
	}
	return nil
}

// EventBuffer collects events in memory and hands them to a Sink on a timer
// or when maxSize is reached.
type EventBuffer struct {
	mu      sync.Mutex
	events  []Event
	sink    Sink
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
	stopped sync.Once
}

// NewEventBuffer starts the flush loop. A non-positive interval disables the
// timer; events are then flushed only when full or on Stop.
func NewEventBuffer(sink Sink, maxSize int, flushInterval time.Duration) *EventBuffer {
	if maxSize <= 0 {
		maxSize = 500
	}
	eb := &EventBuffer{
		sink:    sink,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	if flushInterval > 0 {
		eb.ticker = time.NewTicker(flushInterval)
		go eb.run()
	}
	return eb
}

func (eb *EventBuffer) run() {
	for {
		select {
		case <-eb.done:
			return
		case <-eb.ticker.C:
			eb.Flush()
		}
	}
}

// Enqueue adds an event. A full buffer is flushed in the background.
func (eb *EventBuffer) Enqueue(event Event) {
	eb.mu.Lock()
	eb.events = append(eb.events, event)
	full := len(eb.events) >= eb.maxSize
	eb.mu.Unlock()
	if full {
		go eb.Flush()
	}
}

// Len returns the number of buffered events.
func (eb *EventBuffer) Len() int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return len(eb.events)
}

// Flush hands everything buffered to the sink.
func (eb *EventBuffer) Flush() {
	eb.mu.Lock()
	if len(eb.events) == 0 {
		eb.mu.Unlock()
		return
	}
	batch := eb.events
	eb.events = nil
	eb.mu.Unlock()

	if err := eb.sink.WriteEvents(context.Background(), batch); err != nil {
		log.Error().Err(err).Int("events", len(batch)).Msg("event buffer flush failed")
	}
}

// Stop halts the timer and flushes what remains. Safe to call twice.
func (eb *EventBuffer) Stop() {
	eb.stopped.Do(func() {
		if eb.ticker != nil {
			eb.ticker.Stop()
		}
		close(eb.done)
		eb.Flush()
	})
}
