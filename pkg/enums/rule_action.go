package enums

import "fmt"

// RuleAction is the effect applied when a rule condition matches.
type RuleAction string

const (
	RuleActionRequireSupervisor RuleAction = "require_supervisor"
	RuleActionAutoApprove       RuleAction = "auto_approve"
	RuleActionFlagVendor        RuleAction = "flag_vendor"
	RuleActionNotify            RuleAction = "notify"
)

var validRuleActions = []RuleAction{
	RuleActionRequireSupervisor,
	RuleActionAutoApprove,
	RuleActionFlagVendor,
	RuleActionNotify,
}

// String implements fmt.Stringer.
func (a RuleAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known RuleAction.
func (a RuleAction) IsValid() bool {
	for _, candidate := range validRuleActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseRuleAction converts raw input into a RuleAction.
func ParseRuleAction(value string) (RuleAction, error) {
	for _, candidate := range validRuleActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule action %q", value)
}
