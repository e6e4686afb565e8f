package instrument

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) WriteEvents(_ context.Context, batch []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, batch...)
	return nil
}

func TestGetInstrumenter_DefaultsToNoop(t *testing.T) {
	inst := GetInstrumenter(context.Background())
	if _, ok := inst.(NoopInstrumenter); !ok {
		t.Fatalf("expected NoopInstrumenter, got %T", inst)
	}
	_, span := inst.StartSpan(context.Background(), "a", "b", "c")
	span.End()
}

func TestTracer_SpanParentage(t *testing.T) {
	sink := &recordingSink{}
	buf := NewEventBuffer(sink, 100, 0)
	tracer := NewTracer(buf)

	ctx := WithUser(WithTraceID(context.Background(), "trace-1"), "admin")
	ctx, root := tracer.StartSpan(ctx, "http", "handler", "request")
	_, child := tracer.StartSpan(ctx, "engine", "runtime", "runtime.apply")
	child.SetMetadata("fields", 3)
	child.SetStatus("ok")
	child.End()
	child.End()
	root.SetForm("form-1")
	root.End()

	if buf.Len() != 2 {
		t.Fatalf("expected 2 buffered events, got %d", buf.Len())
	}
	buf.Stop()

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 flushed events, got %d", len(sink.events))
	}
	c, r := sink.events[0], sink.events[1]
	if c.ParentSpanID != r.SpanID {
		t.Fatalf("expected child parent %s, got %s", r.SpanID, c.ParentSpanID)
	}
	if c.TraceID != "trace-1" || r.TraceID != "trace-1" {
		t.Fatalf("expected trace-1 on both spans, got %s and %s", c.TraceID, r.TraceID)
	}
	if c.User != "admin" {
		t.Fatalf("expected user admin, got %s", c.User)
	}
	if c.Metadata["fields"] != 3 || c.Status != "ok" {
		t.Fatalf("unexpected child event %+v", c)
	}
	if r.FormID != "form-1" || r.ParentSpanID != "" {
		t.Fatalf("unexpected root event %+v", r)
	}
}

func TestTracer_Emit(t *testing.T) {
	sink := &recordingSink{}
	buf := NewEventBuffer(sink, 100, 0)
	NewTracer(buf).Emit(context.Background(), "form.saved", "f1", map[string]any{"fields": 2})
	buf.Flush()

	if len(sink.events) != 1 || sink.events[0].Kind != "event" || sink.events[0].FormID != "f1" {
		t.Fatalf("unexpected events %+v", sink.events)
	}
}

func TestLogSink(t *testing.T) {
	var out bytes.Buffer
	sink := LogSink{Logger: zerolog.New(&out), Level: zerolog.InfoLevel}
	err := sink.WriteEvents(context.Background(), []Event{
		{TraceID: "t", SpanID: "s", Kind: "span", Source: "http", Component: "handler", Action: "request", Status: "ok"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := out.String()
	for _, want := range []string{`"trace_id":"t"`, `"action":"request"`, `"status":"ok"`, `"duration_ms"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
}
