package engine

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/spf13/cast"

	"formcraft/internal/metadata"
)

// Rule names reported in ErrorDetail.Rule.
const (
	RuleRequired  = "required"
	RuleType      = "type"
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RuleEmail     = "email"
	RulePassword  = "password"
)

const (
	MsgRequired     = "This field is required"
	MsgNotNumber    = "Must be a number"
	MsgNotDate      = "Must be a valid date"
	MsgNotBoolean   = "Must be a boolean"
	MsgInvalidEmail = "Please enter a valid email address"
	MsgWeakPassword = "Password must be at least 8 characters long and contain at least one number"
)

func minLengthMessage(n int) string {
	return fmt.Sprintf("Minimum length is %d characters", n)
}

func maxLengthMessage(n int) string {
	return fmt.Sprintf("Maximum length is %d characters", n)
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitPattern = regexp.MustCompile(`\d`)
)

// IsValidEmail reports whether s looks like local@domain.tld.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsValidPassword reports whether s has at least 8 characters and one digit.
func IsValidPassword(s string) bool {
	return utf8.RuneCountInString(s) >= 8 && digitPattern.MatchString(s)
}

// Validator is the compiled form of a field list's validation rules.
// It holds no values and can be reused across snapshots of the same schema.
type Validator struct {
	fields []fieldValidator
}

type fieldValidator struct {
	id     string
	coerce coercer
	tests  []ruleTest
}

// coercer converts a raw value to the field's type. A nil result means the
// value is absent; a non-nil detail is a type error.
type coercer func(v any) (any, *ErrorDetail)

// ruleTest passes or fails a coerced value (nil when absent).
type ruleTest struct {
	rule    string
	message string
	pass    func(v any) bool
}

// Compile builds a validator keyed by field id from the fields' rules.
func Compile(fields []metadata.FormField) *Validator {
	v := &Validator{fields: make([]fieldValidator, 0, len(fields))}
	for _, f := range fields {
		v.fields = append(v.fields, compileField(f))
	}
	return v
}

func compileField(f metadata.FormField) fieldValidator {
	fv := fieldValidator{id: f.ID}
	rules := f.Validation

	switch f.Type {
	case metadata.FieldNumber:
		fv.coerce = coerceNumber
	case metadata.FieldDate:
		fv.coerce = coerceDate
	case metadata.FieldCheckbox:
		fv.coerce = coerceBool
	case metadata.FieldText, metadata.FieldTextarea, metadata.FieldSelect, metadata.FieldRadio:
		fv.coerce = coerceString
	default:
		fv.coerce = coerceString
	}

	if rules.Required {
		if f.Type == metadata.FieldCheckbox {
			fv.add(RuleRequired, MsgRequired, func(v any) bool {
				b, ok := v.(bool)
				return ok && b
			})
		} else {
			fv.add(RuleRequired, MsgRequired, func(v any) bool {
				if v == nil {
					return false
				}
				s, isString := v.(string)
				return !isString || s != ""
			})
		}
	}

	if f.Type.IsTextual() {
		if n := rules.MinLength; n > 0 {
			fv.add(RuleMinLength, minLengthMessage(n), func(v any) bool {
				return v == nil || utf8.RuneCountInString(v.(string)) >= n
			})
		}
		if n := rules.MaxLength; n > 0 {
			fv.add(RuleMaxLength, maxLengthMessage(n), func(v any) bool {
				return v == nil || utf8.RuneCountInString(v.(string)) <= n
			})
		}
	}

	if f.Type.IsStringValued() {
		if rules.Email {
			fv.add(RuleEmail, MsgInvalidEmail, func(v any) bool {
				s, _ := v.(string)
				return s == "" || IsValidEmail(s)
			})
		}
		if rules.Password {
			fv.add(RulePassword, MsgWeakPassword, func(v any) bool {
				return v == nil || IsValidPassword(v.(string))
			})
		}
	}

	return fv
}

func (fv *fieldValidator) add(rule, message string, pass func(v any) bool) {
	fv.tests = append(fv.tests, ruleTest{rule: rule, message: message, pass: pass})
}

// check returns the first failing rule for raw, or nil.
func (fv *fieldValidator) check(raw any) *ErrorDetail {
	value, typeErr := fv.coerce(raw)
	if typeErr != nil {
		typeErr.Field = fv.id
		return typeErr
	}
	for _, t := range fv.tests {
		if !t.pass(value) {
			return &ErrorDetail{Field: fv.id, Rule: t.rule, Message: t.message}
		}
	}
	return nil
}

// Check validates values and returns a message per failing field id.
// Fields that pass have no entry.
func (v *Validator) Check(values map[string]any) map[string]string {
	errs := make(map[string]string)
	for i := range v.fields {
		if d := v.fields[i].check(values[v.fields[i].id]); d != nil {
			errs[d.Field] = d.Message
		}
	}
	return errs
}

// Details validates values and returns one ErrorDetail per failing field,
// in field order.
func (v *Validator) Details(values map[string]any) []ErrorDetail {
	var details []ErrorDetail
	for i := range v.fields {
		if d := v.fields[i].check(values[v.fields[i].id]); d != nil {
			details = append(details, *d)
		}
	}
	return details
}

func coerceString(v any) (any, *ErrorDetail) {
	if v == nil {
		return nil, nil
	}
	return toText(v), nil
}

func coerceNumber(v any) (any, *ErrorDetail) {
	if isBlank(v) {
		return nil, nil
	}
	n, ok := toNumber(v)
	if !ok {
		return nil, &ErrorDetail{Rule: RuleType, Message: MsgNotNumber}
	}
	return n, nil
}

func coerceDate(v any) (any, *ErrorDetail) {
	if isBlank(v) {
		return nil, nil
	}
	t, err := toDate(v)
	if err != nil {
		return nil, &ErrorDetail{Rule: RuleType, Message: MsgNotDate}
	}
	return t, nil
}

func coerceBool(v any) (any, *ErrorDetail) {
	if isBlank(v) {
		return nil, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return nil, &ErrorDetail{Rule: RuleType, Message: MsgNotBoolean}
	}
	return b, nil
}
