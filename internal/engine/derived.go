package engine

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"formcraft/internal/metadata"
)

var (
	ErrUnsafeExpression = errors.New("expression contains characters outside the arithmetic whitelist")
	ErrNotNumeric       = errors.New("expression did not produce a finite number")
)

var (
	tokenPattern   = regexp.MustCompile(`[A-Za-z_]\w*`)
	safeExpression = regexp.MustCompile(`^[\d+\-*/()\s.]+$`)
	numberLiteral  = regexp.MustCompile(`\d+(?:\.\d*)?|\.\d+`)
)

// maxCachedPrograms bounds the compiled-program cache. Keys contain parent
// values, so the cache is reset once it fills.
const maxCachedPrograms = 512

// ParentValue is one parent field's current value.
type ParentValue struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// ParentValues keeps parent values in the order the derived field lists
// its parents.
type ParentValues []ParentValue

// Set assigns id's value, keeping its original position if already present.
func (p ParentValues) Set(id string, v any) ParentValues {
	for i := range p {
		if p[i].ID == id {
			p[i].Value = v
			return p
		}
	}
	return append(p, ParentValue{ID: id, Value: v})
}

// Lookup returns the value for id and whether it is present.
func (p ParentValues) Lookup(id string) (any, bool) {
	for _, pv := range p {
		if pv.ID == id {
			return pv.Value, true
		}
	}
	return nil, false
}

// Values returns the values in order.
func (p ParentValues) Values() []any {
	out := make([]any, len(p))
	for i, pv := range p {
		out[i] = pv.Value
	}
	return out
}

// Formula computes a derived value from its parents. fields is the full
// field list, for type lookups.
type Formula func(parents ParentValues, fields []metadata.FormField, now time.Time) (any, error)

// Evaluator computes derived field values. Formula names are matched
// case-insensitively; anything unregistered is treated as an arithmetic
// template over the parent ids.
type Evaluator struct {
	formulas map[string]Formula
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]*vm.Program
}

type EvaluatorOption func(*Evaluator)

// WithClock overrides the time source used by date formulas.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

// WithFormula registers (or replaces) a named formula.
func WithFormula(name string, fn Formula) EvaluatorOption {
	return func(e *Evaluator) { e.formulas[strings.ToLower(name)] = fn }
}

func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		formulas: map[string]Formula{
			"age":     ageFormula,
			"concat":  concatFormula,
			"sum":     sumFormula,
			"average": averageFormula,
		},
		now:   time.Now,
		cache: make(map[string]*vm.Program),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Formulas returns the registered formula names, sorted.
func (e *Evaluator) Formulas() []string {
	names := make([]string, 0, len(e.formulas))
	for name := range e.formulas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether formula names a registered formula.
func (e *Evaluator) IsRegistered(formula string) bool {
	_, ok := e.formulas[strings.ToLower(formula)]
	return ok
}

// Evaluate computes a derived value and never fails: any error, including
// a panic inside a formula, yields the empty string.
func (e *Evaluator) Evaluate(formula string, parents ParentValues, fields []metadata.FormField) (result any) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("formula", formula).Interface("panic", r).Msg("derived value evaluation panicked")
			result = ""
		}
	}()

	v, err := e.Compute(formula, parents, fields)
	if err != nil {
		if errors.Is(err, ErrUnsafeExpression) {
			log.Debug().Err(err).Str("formula", formula).Msg("rejected derived formula")
		} else {
			log.Warn().Err(err).Str("formula", formula).Msg("error computing derived value")
		}
		return ""
	}
	return v
}

// Compute is Evaluate without the fail-safe.
func (e *Evaluator) Compute(formula string, parents ParentValues, fields []metadata.FormField) (any, error) {
	if fn, ok := e.formulas[strings.ToLower(formula)]; ok {
		return fn(parents, fields, e.now())
	}
	return e.evalTemplate(formula, parents)
}

// substituteTokens replaces every identifier in formula with the matching
// parent value, or 0 when there is none.
func substituteTokens(formula string, parents ParentValues) string {
	return tokenPattern.ReplaceAllStringFunc(formula, func(tok string) string {
		if v, ok := parents.Lookup(tok); ok && v != nil {
			return toText(v)
		}
		return "0"
	})
}

func (e *Evaluator) evalTemplate(formula string, parents ParentValues) (any, error) {
	expression := substituteTokens(formula, parents)
	// Only digits, operators, parens, dots and spaces reach the VM.
	if !safeExpression.MatchString(expression) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeExpression, expression)
	}

	prog, err := e.program(floatLiterals(expression))
	if err != nil {
		return "", err
	}
	out, err := expr.Run(prog, map[string]any{})
	if err != nil {
		return "", fmt.Errorf("evaluate expression: %w", err)
	}
	n, ok := finiteNumber(out)
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrNotNumeric, out)
	}
	return n, nil
}

// floatLiterals rewrites integer literals as float literals so the VM does
// float64 arithmetic throughout.
func floatLiterals(expression string) string {
	return numberLiteral.ReplaceAllStringFunc(expression, func(lit string) string {
		if strings.Contains(lit, ".") {
			return lit
		}
		return lit + ".0"
	})
}

// program returns the compiled expression, cached by source text.
func (e *Evaluator) program(expression string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prog, ok := e.cache[expression]; ok {
		return prog, nil
	}
	prog, err := expr.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	if len(e.cache) >= maxCachedPrograms {
		clear(e.cache)
	}
	e.cache[expression] = prog
	return prog, nil
}

func finiteNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func findField(fields []metadata.FormField, id string) *metadata.FormField {
	for i := range fields {
		if fields[i].ID == id {
			return &fields[i]
		}
	}
	return nil
}

// ageFormula returns whole years since the first date-typed parent.
func ageFormula(parents ParentValues, fields []metadata.FormField, now time.Time) (any, error) {
	for _, p := range parents {
		f := findField(fields, p.ID)
		if f == nil || f.Type != metadata.FieldDate || !isTruthy(p.Value) {
			continue
		}
		birth, err := toDate(p.Value)
		if err != nil {
			// An unreadable date still decides the result.
			return 0, nil
		}
		return yearsBetween(birth, now), nil
	}
	return 0, nil
}

func yearsBetween(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

func concatFormula(parents ParentValues, _ []metadata.FormField, _ time.Time) (any, error) {
	parts := make([]string, 0, len(parents))
	for _, v := range parents.Values() {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		parts = append(parts, toText(v))
	}
	return strings.Join(parts, " "), nil
}

func numericParents(parents ParentValues) []float64 {
	var nums []float64
	for _, v := range parents.Values() {
		if n, ok := toNumber(v); ok {
			nums = append(nums, n)
		}
	}
	return nums
}

func sumFormula(parents ParentValues, _ []metadata.FormField, _ time.Time) (any, error) {
	var total float64
	for _, n := range numericParents(parents) {
		total += n
	}
	return total, nil
}

func averageFormula(parents ParentValues, _ []metadata.FormField, _ time.Time) (any, error) {
	nums := numericParents(parents)
	if len(nums) == 0 {
		return float64(0), nil
	}
	var total float64
	for _, n := range nums {
		total += n
	}
	return total / float64(len(nums)), nil
}
