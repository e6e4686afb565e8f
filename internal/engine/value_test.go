package engine

import (
	"testing"

	"formcraft/internal/metadata"
)

func TestValidateFieldValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		rules metadata.ValidationRules
		want  string // rule name, "" for pass
	}{
		{"required missing", nil, metadata.ValidationRules{Required: true}, RuleRequired},
		{"required blank", "   ", metadata.ValidationRules{Required: true}, RuleRequired},
		{"required false", false, metadata.ValidationRules{Required: true}, RuleRequired},
		{"required zero", float64(0), metadata.ValidationRules{Required: true}, RuleRequired},
		{"required present", "x", metadata.ValidationRules{Required: true}, ""},
		{"min length", "ab", metadata.ValidationRules{MinLength: 3}, RuleMinLength},
		{"max length", "abcd", metadata.ValidationRules{MaxLength: 3}, RuleMaxLength},
		{"length skips empty", "", metadata.ValidationRules{MinLength: 3}, ""},
		{"length skips numbers", float64(1), metadata.ValidationRules{MinLength: 3}, ""},
		{"email bad", "nope", metadata.ValidationRules{Email: true}, RuleEmail},
		{"email good", "a@b.co", metadata.ValidationRules{Email: true}, ""},
		{"password weak", "abcdefgh", metadata.ValidationRules{Password: true}, RulePassword},
		{"password strong", "abcdefg1", metadata.ValidationRules{Password: true}, ""},
		{"password skips empty", "", metadata.ValidationRules{Password: true}, ""},
		{"min before email", "a", metadata.ValidationRules{MinLength: 2, Email: true}, RuleMinLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ValidateFieldValue(tt.value, tt.rules)
			switch {
			case tt.want == "" && d != nil:
				t.Fatalf("expected pass, got %+v", d)
			case tt.want != "" && d == nil:
				t.Fatalf("expected %s failure, got pass", tt.want)
			case d != nil && d.Rule != tt.want:
				t.Fatalf("expected rule %s, got %s", tt.want, d.Rule)
			}
		})
	}
}

func TestValidateFieldValue_Messages(t *testing.T) {
	d := ValidateFieldValue("ab", metadata.ValidationRules{MinLength: 3})
	if d == nil || d.Message != "Minimum length is 3 characters" {
		t.Fatalf("unexpected detail %+v", d)
	}
	d = ValidateFieldValue("", metadata.ValidationRules{Required: true})
	if d == nil || d.Message != MsgRequired {
		t.Fatalf("unexpected detail %+v", d)
	}
}
