package rules

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/paprflow/paprflow-backend/pkg/db/models"
	"github.com/paprflow/paprflow-backend/pkg/enums"
	"github.com/paprflow/paprflow-backend/pkg/logger"
)

// Trigger records one rule whose condition matched, paired with the action
// to apply. Triggers preserve rule evaluation order.
type Trigger struct {
	Rule   models.Rule      `json:"rule"`
	Action enums.RuleAction `json:"action"`
}

// Engine evaluates a rule set against invoice snapshots. Evaluation is
// read-only; applying the resulting triggers is the workflow's job.
type Engine struct {
	logg *logger.Logger
}

// NewEngine builds a rule engine.
func NewEngine(logg *logger.Logger) (*Engine, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{logg: logg}, nil
}

// Evaluate runs every rule in ruleSet against the snapshot, in the order
// given (callers pass creation order). All matching rules fire; a rule
// whose evaluation hits a type mismatch is logged, counted as a non-match
// and never aborts the pass. The aggregated warnings are returned for
// introspection alongside the triggers.
func (e *Engine) Evaluate(ctx context.Context, snap Snapshot, ruleSet []models.Rule) ([]Trigger, error) {
	triggers := []Trigger{}
	var warnings error

	for _, rule := range ruleSet {
		matched, err := Match(rule, snap)
		if err != nil {
			if !errors.Is(err, ErrTypeMismatch) {
				// Matcher only reports mismatches, but guard anyway.
				warnings = multierr.Append(warnings, err)
				continue
			}
			warnCtx := e.logg.WithFields(ctx, map[string]any{
				"rule_id":    rule.ID.String(),
				"rule_name":  rule.Name,
				"invoice_id": snap.InvoiceID,
			})
			e.logg.Warn(warnCtx, "rule skipped: "+err.Error())
			warnings = multierr.Append(warnings, fmt.Errorf("rule %s: %w", rule.Name, err))
			continue
		}
		if matched {
			triggers = append(triggers, Trigger{Rule: rule, Action: rule.ThenAction})
		}
	}

	return triggers, warnings
}
