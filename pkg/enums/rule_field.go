package enums

import "fmt"

// RuleField names the invoice attribute a rule condition reads.
type RuleField string

const (
	RuleFieldTotal    RuleField = "total"
	RuleFieldVendor   RuleField = "vendor"
	RuleFieldCurrency RuleField = "currency"
)

var validRuleFields = []RuleField{
	RuleFieldTotal,
	RuleFieldVendor,
	RuleFieldCurrency,
}

// String implements fmt.Stringer.
func (f RuleField) String() string {
	return string(f)
}

// IsValid reports whether the value is a known RuleField.
func (f RuleField) IsValid() bool {
	for _, candidate := range validRuleFields {
		if candidate == f {
			return true
		}
	}
	return false
}

// IsNumeric reports whether the field resolves to a numeric value.
func (f RuleField) IsNumeric() bool {
	return f == RuleFieldTotal
}

// ParseRuleField converts raw input into a RuleField.
func ParseRuleField(value string) (RuleField, error) {
	for _, candidate := range validRuleFields {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule field %q", value)
}
