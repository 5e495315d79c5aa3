package enums

import "fmt"

// RuleOperator is the comparison a rule applies to its field.
type RuleOperator string

const (
	RuleOperatorGT       RuleOperator = ">"
	RuleOperatorLT       RuleOperator = "<"
	RuleOperatorEQ       RuleOperator = "="
	RuleOperatorNEQ      RuleOperator = "!="
	RuleOperatorGTE      RuleOperator = ">="
	RuleOperatorLTE      RuleOperator = "<="
	RuleOperatorContains RuleOperator = "contains"
)

var validRuleOperators = []RuleOperator{
	RuleOperatorGT,
	RuleOperatorLT,
	RuleOperatorEQ,
	RuleOperatorNEQ,
	RuleOperatorGTE,
	RuleOperatorLTE,
	RuleOperatorContains,
}

// String implements fmt.Stringer.
func (o RuleOperator) String() string {
	return string(o)
}

// IsValid reports whether the value is a known RuleOperator.
func (o RuleOperator) IsValid() bool {
	for _, candidate := range validRuleOperators {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsOrdering reports whether the operator requires numeric operands.
func (o RuleOperator) IsOrdering() bool {
	switch o {
	case RuleOperatorGT, RuleOperatorLT, RuleOperatorGTE, RuleOperatorLTE:
		return true
	default:
		return false
	}
}

// ParseRuleOperator converts raw input into a RuleOperator.
func ParseRuleOperator(value string) (RuleOperator, error) {
	for _, candidate := range validRuleOperators {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule operator %q", value)
}
