package rules

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/enums"
)

func dec(t *testing.T, value string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", value, err)
	}
	return &d
}

func activeRule(field enums.RuleField, op enums.RuleOperator, value string) models.Rule {
	return models.Rule{
		Name:     "test rule",
		IfField:  field,
		Operator: op,
		Value:    value,
		Active:   true,
	}
}

func TestMatchNumericOperators(t *testing.T) {
	snap := Snapshot{Total: dec(t, "1500.00"), Currency: "USD"}

	tests := []struct {
		name  string
		op    enums.RuleOperator
		value string
		want  bool
	}{
		{name: "gt matches", op: enums.RuleOperatorGT, value: "1000", want: true},
		{name: "gt misses", op: enums.RuleOperatorGT, value: "2000", want: false},
		{name: "gt boundary", op: enums.RuleOperatorGT, value: "1500", want: false},
		{name: "gte boundary", op: enums.RuleOperatorGTE, value: "1500", want: true},
		{name: "lt matches", op: enums.RuleOperatorLT, value: "1500.01", want: true},
		{name: "lte boundary", op: enums.RuleOperatorLTE, value: "1500.00", want: true},
		{name: "eq trailing zeros", op: enums.RuleOperatorEQ, value: "1500", want: true},
		{name: "neq", op: enums.RuleOperatorNEQ, value: "1200", want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Match(activeRule(enums.RuleFieldTotal, tc.op, tc.value), snap)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("total %s %s: got %v want %v", tc.op, tc.value, got, tc.want)
			}
		})
	}
}

func TestMatchStringOperators(t *testing.T) {
	snap := Snapshot{VendorName: "Acme Corp", Currency: "USD"}

	tests := []struct {
		name  string
		field enums.RuleField
		op    enums.RuleOperator
		value string
		want  bool
	}{
		{name: "currency eq", field: enums.RuleFieldCurrency, op: enums.RuleOperatorEQ, value: "USD", want: true},
		{name: "currency eq case sensitive", field: enums.RuleFieldCurrency, op: enums.RuleOperatorEQ, value: "usd", want: false},
		{name: "currency neq", field: enums.RuleFieldCurrency, op: enums.RuleOperatorNEQ, value: "GHS", want: true},
		{name: "vendor contains", field: enums.RuleFieldVendor, op: enums.RuleOperatorContains, value: "Acme", want: true},
		{name: "vendor contains case insensitive", field: enums.RuleFieldVendor, op: enums.RuleOperatorContains, value: "acme", want: true},
		{name: "vendor contains misses", field: enums.RuleFieldVendor, op: enums.RuleOperatorContains, value: "Globex", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Match(activeRule(tc.field, tc.op, tc.value), snap)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("%s %s %q: got %v want %v", tc.field, tc.op, tc.value, got, tc.want)
			}
		})
	}
}

func TestMatchTypeMismatches(t *testing.T) {
	tests := []struct {
		name string
		rule models.Rule
		snap Snapshot
	}{
		{
			name: "ordering operator on string field",
			rule: activeRule(enums.RuleFieldVendor, enums.RuleOperatorGT, "10"),
			snap: Snapshot{VendorName: "Acme Corp"},
		},
		{
			name: "numeric operator with unset total",
			rule: activeRule(enums.RuleFieldTotal, enums.RuleOperatorGT, "100"),
			snap: Snapshot{},
		},
		{
			name: "non-numeric rule value",
			rule: activeRule(enums.RuleFieldTotal, enums.RuleOperatorGTE, "lots"),
			snap: Snapshot{Total: dec(t, "10")},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Match(tc.rule, tc.snap)
			if got {
				t.Fatalf("mismatch must never match")
			}
			if !errors.Is(err, ErrTypeMismatch) {
				t.Fatalf("expected ErrTypeMismatch, got %v", err)
			}
		})
	}
}

func TestMatchContainsOnNumericFieldNeverMatches(t *testing.T) {
	got, err := Match(activeRule(enums.RuleFieldTotal, enums.RuleOperatorContains, "15"), Snapshot{Total: dec(t, "1500")})
	if err != nil {
		t.Fatalf("contains on numeric field should be a plain non-match, got %v", err)
	}
	if got {
		t.Fatalf("contains must not match numeric fields")
	}
}

func TestMatchInactiveRuleShortCircuits(t *testing.T) {
	rule := activeRule(enums.RuleFieldCurrency, enums.RuleOperatorEQ, "USD")
	rule.Active = false

	got, err := Match(rule, Snapshot{Currency: "USD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Fatalf("inactive rules must never match")
	}
}

func TestSnapshotOfPrefersResolvedVendorName(t *testing.T) {
	denormalized := "acme (unmatched)"
	inv := &models.Invoice{VendorName: &denormalized, Currency: "GHS"}

	if got := SnapshotOf(inv, "Acme Corp").VendorName; got != "Acme Corp" {
		t.Fatalf("expected resolved vendor name, got %q", got)
	}
	if got := SnapshotOf(inv, "").VendorName; got != denormalized {
		t.Fatalf("expected denormalized fallback, got %q", got)
	}
}
