package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/enums"
)

// ErrTypeMismatch marks a rule whose operator cannot be applied to the
// resolved field value. Callers downgrade it to a non-match; it never
// reaches the workflow caller.
var ErrTypeMismatch = errors.New("rule field/operator type mismatch")

// Snapshot is the read-only view of one invoice the matcher sees. It is
// captured once per evaluation pass so the matcher stays a pure function.
type Snapshot struct {
	InvoiceID  string
	Total      *decimal.Decimal
	VendorName string
	Currency   string
}

// SnapshotOf builds a Snapshot from an invoice, preferring the resolved
// vendor name over the denormalized one captured at upload time.
func SnapshotOf(inv *models.Invoice, resolvedVendorName string) Snapshot {
	snap := Snapshot{
		InvoiceID: inv.ID.String(),
		Total:     inv.Total,
		Currency:  inv.Currency,
	}
	switch {
	case resolvedVendorName != "":
		snap.VendorName = resolvedVendorName
	case inv.VendorName != nil:
		snap.VendorName = *inv.VendorName
	}
	return snap
}

// Match evaluates a single rule against the snapshot. Inactive rules
// short-circuit to false. The returned error is always ErrTypeMismatch
// (possibly wrapped); any such outcome counts as a non-match.
func Match(rule models.Rule, snap Snapshot) (bool, error) {
	if !rule.Active {
		return false, nil
	}

	if rule.IfField.IsNumeric() {
		return matchNumeric(rule, snap.Total)
	}

	var field string
	switch rule.IfField {
	case enums.RuleFieldVendor:
		field = snap.VendorName
	case enums.RuleFieldCurrency:
		field = snap.Currency
	default:
		return false, fmt.Errorf("%w: unknown field %q", ErrTypeMismatch, rule.IfField)
	}
	return matchString(rule, field)
}

func matchNumeric(rule models.Rule, field *decimal.Decimal) (bool, error) {
	if rule.Operator == enums.RuleOperatorContains {
		// contains is only defined for string fields.
		return false, nil
	}
	if field == nil {
		return false, fmt.Errorf("%w: numeric field %q is unset", ErrTypeMismatch, rule.IfField)
	}
	operand, err := decimal.NewFromString(strings.TrimSpace(rule.Value))
	if err != nil {
		return false, fmt.Errorf("%w: value %q is not numeric", ErrTypeMismatch, rule.Value)
	}

	cmp := field.Cmp(operand)
	switch rule.Operator {
	case enums.RuleOperatorGT:
		return cmp > 0, nil
	case enums.RuleOperatorLT:
		return cmp < 0, nil
	case enums.RuleOperatorGTE:
		return cmp >= 0, nil
	case enums.RuleOperatorLTE:
		return cmp <= 0, nil
	case enums.RuleOperatorEQ:
		return cmp == 0, nil
	case enums.RuleOperatorNEQ:
		return cmp != 0, nil
	default:
		return false, fmt.Errorf("%w: operator %q", ErrTypeMismatch, rule.Operator)
	}
}

func matchString(rule models.Rule, field string) (bool, error) {
	switch rule.Operator {
	case enums.RuleOperatorEQ:
		return field == rule.Value, nil
	case enums.RuleOperatorNEQ:
		return field != rule.Value, nil
	case enums.RuleOperatorContains:
		return strings.Contains(strings.ToLower(field), strings.ToLower(rule.Value)), nil
	default:
		if rule.Operator.IsOrdering() {
			return false, fmt.Errorf("%w: ordering operator %q on string field %q", ErrTypeMismatch, rule.Operator, rule.IfField)
		}
		return false, fmt.Errorf("%w: operator %q", ErrTypeMismatch, rule.Operator)
	}
}
