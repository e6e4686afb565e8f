package engine

import (
	"context"

	"formcraft/internal/instrument"
	"formcraft/internal/metadata"
)

// Result is the outcome of one value-change event.
type Result struct {
	Values      map[string]any    `json:"values"`
	Derived     map[string]any    `json:"derived"`
	Errors      map[string]string `json:"errors"`
	Details     []ErrorDetail     `json:"details,omitempty"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
}

// Valid reports whether every field passed validation.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Runtime recomputes derived fields and re-validates a value snapshot.
// It keeps no schema or value state between calls.
type Runtime struct {
	evaluator *Evaluator
}

func NewRuntime(ev *Evaluator) *Runtime {
	if ev == nil {
		ev = NewEvaluator()
	}
	return &Runtime{evaluator: ev}
}

// Evaluator returns the evaluator used for derived fields.
func (r *Runtime) Evaluator() *Evaluator {
	return r.evaluator
}

// Apply processes a single value-change event. Every derived field reads its
// parents from the incoming snapshot, so a derived field whose parent is
// itself derived sees the parent's value from the previous event.
// The caller's map is never modified.
func (r *Runtime) Apply(ctx context.Context, fields []metadata.FormField, snapshot map[string]any) Result {
	_, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "engine", "runtime", "runtime.apply")
	defer span.End()
	span.SetMetadata("fields", len(fields))

	values := make(map[string]any, len(snapshot)+len(fields))
	for k, v := range snapshot {
		values[k] = v
	}

	derived := make(map[string]any)
	for _, f := range fields {
		if f.Derived == nil {
			continue
		}
		parents := make(ParentValues, 0, len(f.Derived.ParentFields))
		for _, id := range f.Derived.ParentFields {
			parents = parents.Set(id, snapshot[id])
		}
		v := r.evaluator.Evaluate(f.Derived.Formula, parents, fields)
		derived[f.ID] = v
		values[f.ID] = v
	}

	validator := Compile(fields)
	details := validator.Details(values)
	errs := make(map[string]string, len(details))
	for _, d := range details {
		errs[d.Field] = d.Message
	}

	if len(errs) > 0 {
		span.SetStatus("invalid")
	} else {
		span.SetStatus("ok")
	}

	return Result{
		Values:      values,
		Derived:     derived,
		Errors:      errs,
		Details:     details,
		Diagnostics: DiagnoseDerived(fields, r.evaluator),
	}
}

// DefaultValues seeds a snapshot from the fields' defaults: a truthy
// defaultValue, otherwise false for checkboxes and "" for everything else.
func DefaultValues(fields []metadata.FormField) map[string]any {
	values := make(map[string]any, len(fields))
	for _, f := range fields {
		switch {
		case isTruthy(f.DefaultValue):
			values[f.ID] = f.DefaultValue
		case f.Type == metadata.FieldCheckbox:
			values[f.ID] = false
		default:
			values[f.ID] = ""
		}
	}
	return values
}
