package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

const (
	traceIDKey ctxKey = iota
	parentSpanIDKey
	instrumenterKey
	userKey
)

// Instrumenter starts spans and records one-shot events.
type Instrumenter interface {
	StartSpan(ctx context.Context, source, component, action string) (context.Context, Span)
	Emit(ctx context.Context, action, formID string, metadata map[string]any)
}

// Span is a timed operation.
type Span interface {
	End()
	SetStatus(status string)
	SetMetadata(key string, value any)
	SetForm(formID string)
	TraceID() string
	SpanID() string
}

// Event is what a finished span or an Emit call hands to the buffer.
type Event struct {
	TraceID      string         `json:"trace_id"`
	SpanID       string         `json:"span_id"`
	ParentSpanID string         `json:"parent_span_id,omitempty"`
	Kind         string         `json:"kind"` // "span" or "event"
	Source       string         `json:"source"`
	Component    string         `json:"component"`
	Action       string         `json:"action"`
	FormID       string         `json:"form_id,omitempty"`
	User         string         `json:"user,omitempty"`
	DurationMs   float64        `json:"duration_ms,omitempty"`
	Status       string         `json:"status,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func newID() string {
	return uuid.New().String()
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

func withParentSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, parentSpanIDKey, spanID)
}

func parentSpanID(ctx context.Context) string {
	if v, ok := ctx.Value(parentSpanIDKey).(string); ok {
		return v
	}
	return ""
}

func WithInstrumenter(ctx context.Context, inst Instrumenter) context.Context {
	return context.WithValue(ctx, instrumenterKey, inst)
}

// GetInstrumenter returns the context's instrumenter, or a no-op one.
func GetInstrumenter(ctx context.Context) Instrumenter {
	if ctx != nil {
		if v, ok := ctx.Value(instrumenterKey).(Instrumenter); ok {
			return v
		}
	}
	return NoopInstrumenter{}
}

// WithUser records the authenticated subject for spans started from ctx.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func userFrom(ctx context.Context) string {
	if v, ok := ctx.Value(userKey).(string); ok {
		return v
	}
	return ""
}

// Tracer enqueues finished spans and events on an EventBuffer.
type Tracer struct {
	buffer *EventBuffer
}

func NewTracer(buffer *EventBuffer) *Tracer {
	return &Tracer{buffer: buffer}
}

func (t *Tracer) StartSpan(ctx context.Context, source, component, action string) (context.Context, Span) {
	s := &span{
		traceID:   GetTraceID(ctx),
		spanID:    newID(),
		parentID:  parentSpanID(ctx),
		source:    source,
		component: component,
		action:    action,
		user:      userFrom(ctx),
		start:     time.Now(),
		buffer:    t.buffer,
	}
	return withParentSpanID(ctx, s.spanID), s
}

func (t *Tracer) Emit(ctx context.Context, action, formID string, metadata map[string]any) {
	t.buffer.Enqueue(Event{
		TraceID:      GetTraceID(ctx),
		SpanID:       newID(),
		ParentSpanID: parentSpanID(ctx),
		Kind:         "event",
		Source:       "editor",
		Component:    "session",
		Action:       action,
		FormID:       formID,
		User:         userFrom(ctx),
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	})
}

type span struct {
	mu sync.Mutex

	traceID   string
	spanID    string
	parentID  string
	source    string
	component string
	action    string
	formID    string
	user      string
	status    string
	start     time.Time
	metadata  map[string]any
	buffer    *EventBuffer
	ended     bool
}

func (s *span) TraceID() string { return s.traceID }
func (s *span) SpanID() string  { return s.spanID }

func (s *span) SetStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *span) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metadata == nil {
		s.metadata = make(map[string]any)
	}
	s.metadata[key] = value
}

func (s *span) SetForm(formID string) {
	s.mu.Lock()
	s.formID = formID
	s.mu.Unlock()
}

// End is idempotent.
func (s *span) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	ev := Event{
		TraceID:      s.traceID,
		SpanID:       s.spanID,
		ParentSpanID: s.parentID,
		Kind:         "span",
		Source:       s.source,
		Component:    s.component,
		Action:       s.action,
		FormID:       s.formID,
		User:         s.user,
		DurationMs:   float64(time.Since(s.start).Microseconds()) / 1000.0,
		Status:       s.status,
		Metadata:     s.metadata,
		CreatedAt:    s.start.UTC(),
	}
	s.mu.Unlock()
	s.buffer.Enqueue(ev)
}
