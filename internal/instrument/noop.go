package instrument

import "context"

// NoopInstrumenter discards everything. Used when instrumentation is
// disabled or a request is sampled out.
type NoopInstrumenter struct{}

func (NoopInstrumenter) StartSpan(ctx context.Context, _, _, _ string) (context.Context, Span) {
	return ctx, NoopSpan{}
}

func (NoopInstrumenter) Emit(context.Context, string, string, map[string]any) {}

type NoopSpan struct{}

func (NoopSpan) End()                    {}
func (NoopSpan) SetStatus(string)        {}
func (NoopSpan) SetMetadata(string, any) {}
func (NoopSpan) SetForm(string)          {}
func (NoopSpan) TraceID() string         { return "" }
func (NoopSpan) SpanID() string          { return "" }
