package engine

import (
	"fmt"
	"sort"
	"strings"

	"formcraft/internal/metadata"
)

// Diagnostic is a static finding about derived field wiring.
type Diagnostic struct {
	Severity string `json:"severity"` // "error", "warning", "info"
	Field    string `json:"field,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

const (
	CodeUnknownParent = "unknown_parent"
	CodeSelfParent    = "self_parent"
	CodeChainedParent = "chained_parent"
	CodeCycle         = "cycle"
	CodeUnboundToken  = "unbound_token"
)

// DiagnoseDerived inspects derived field configuration without evaluating
// anything. Derived values are recomputed in a single pass per change, so a
// derived parent is reported as a chain and a loop as a cycle.
func DiagnoseDerived(fields []metadata.FormField, ev *Evaluator) []Diagnostic {
	if ev == nil {
		ev = NewEvaluator()
	}

	byID := make(map[string]*metadata.FormField, len(fields))
	for i := range fields {
		byID[fields[i].ID] = &fields[i]
	}

	var out []Diagnostic
	add := func(severity, field, code, msg string) {
		out = append(out, Diagnostic{Severity: severity, Field: field, Code: code, Message: msg})
	}

	graph := make(map[string][]string)
	for _, f := range fields {
		if f.Derived == nil {
			continue
		}
		for _, pid := range f.Derived.ParentFields {
			parent, ok := byID[pid]
			switch {
			case pid == f.ID:
				add(SeverityError, f.ID, CodeSelfParent,
					fmt.Sprintf("derived field '%s' lists itself as a parent", f.ID))
			case !ok:
				add(SeverityWarning, f.ID, CodeUnknownParent,
					fmt.Sprintf("derived field '%s' references unknown parent '%s'", f.ID, pid))
			case parent.IsDerived():
				add(SeverityWarning, f.ID, CodeChainedParent,
					fmt.Sprintf("derived field '%s' depends on derived field '%s' and may lag one change behind", f.ID, pid))
				graph[f.ID] = append(graph[f.ID], pid)
			}
		}

		if !ev.IsRegistered(f.Derived.Formula) {
			for _, tok := range unboundTokens(f.Derived) {
				add(SeverityInfo, f.ID, CodeUnboundToken,
					fmt.Sprintf("formula token '%s' is not a parent of '%s' and evaluates as 0", tok, f.ID))
			}
		}
	}

	for _, cycle := range findCycles(graph) {
		add(SeverityError, cycle[0], CodeCycle,
			fmt.Sprintf("derived fields form a cycle: %s", strings.Join(append(cycle, cycle[0]), " -> ")))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if severityRank(a.Severity) != severityRank(b.Severity) {
			return severityRank(a.Severity) < severityRank(b.Severity)
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})
	return out
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func severityRank(s string) int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

func unboundTokens(d *metadata.DerivedConfig) []string {
	parents := make(map[string]bool, len(d.ParentFields))
	for _, p := range d.ParentFields {
		parents[p] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, tok := range tokenPattern.FindAllString(d.Formula, -1) {
		if parents[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// findCycles returns each elementary cycle once, rotated so that its
// smallest id comes first.
func findCycles(graph map[string][]string) [][]string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int)
	var stack []string
	seen := make(map[string]bool)
	var cycles [][]string

	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	var visit func(n string)
	visit = func(n string) {
		state[n] = onStack
		stack = append(stack, n)
		for _, next := range graph[n] {
			switch state[next] {
			case unvisited:
				visit(next)
			case onStack:
				start := len(stack) - 1
				for stack[start] != next {
					start--
				}
				cycle := canonicalCycle(stack[start:])
				key := strings.Join(cycle, "\x00")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
	}

	for _, n := range nodes {
		if state[n] == unvisited {
			visit(n)
		}
	}
	return cycles
}

func canonicalCycle(path []string) []string {
	minIdx := 0
	for i := range path {
		if path[i] < path[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(path))
	out = append(out, path[minIdx:]...)
	out = append(out, path[:minIdx]...)
	return out
}
