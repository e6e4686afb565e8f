package engine

import (
	"strings"
	"unicode/utf8"

	"formcraft/internal/metadata"
)

// ValidateFieldValue applies rules to a single value without a field
// definition. Length, email and password checks only look at non-empty
// strings. Returns nil when the value passes.
func ValidateFieldValue(value any, rules metadata.ValidationRules) *ErrorDetail {
	if rules.Required && (!isTruthy(value) || strings.TrimSpace(toText(value)) == "") {
		return &ErrorDetail{Rule: RuleRequired, Message: MsgRequired}
	}

	s, ok := value.(string)
	if !ok || s == "" {
		return nil
	}

	if rules.MinLength > 0 && utf8.RuneCountInString(s) < rules.MinLength {
		return &ErrorDetail{Rule: RuleMinLength, Message: minLengthMessage(rules.MinLength)}
	}
	if rules.MaxLength > 0 && utf8.RuneCountInString(s) > rules.MaxLength {
		return &ErrorDetail{Rule: RuleMaxLength, Message: maxLengthMessage(rules.MaxLength)}
	}
	if rules.Email && !IsValidEmail(s) {
		return &ErrorDetail{Rule: RuleEmail, Message: MsgInvalidEmail}
	}
	if rules.Password && !IsValidPassword(s) {
		return &ErrorDetail{Rule: RulePassword, Message: MsgWeakPassword}
	}
	return nil
}
