package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paprflow/paprflow-backend/api/responses"
	"github.com/paprflow/paprflow-backend/api/validators"
	"github.com/paprflow/paprflow-backend/internal/rules"
	"github.com/paprflow/paprflow-backend/pkg/enums"
	pkgerrors "github.com/paprflow/paprflow-backend/pkg/errors"
	"github.com/paprflow/paprflow-backend/pkg/logger"
)

type createRuleBody struct {
	Name       string `json:"name" validate:"required,max=255"`
	IfField    string `json:"if_field" validate:"required"`
	Operator   string `json:"operator" validate:"required"`
	Value      string `json:"value" validate:"required,max=255"`
	ThenAction string `json:"then_action" validate:"required"`
	Active     *bool  `json:"active,omitempty"`
}

type setRuleActiveBody struct {
	Active *bool `json:"active" validate:"required"`
}

// RuleCreate adds a rule to the catalog.
func RuleCreate(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createRuleBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		field, err := enums.ParseRuleField(strings.TrimSpace(body.IfField))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rule field"))
			return
		}
		operator, err := enums.ParseRuleOperator(strings.TrimSpace(body.Operator))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rule operator"))
			return
		}
		action, err := enums.ParseRuleAction(strings.TrimSpace(body.ThenAction))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rule action"))
			return
		}

		rule, err := svc.Create(r.Context(), rules.CreateRequest{
			Name:       validators.SanitizeString(body.Name, 255),
			IfField:    field,
			Operator:   operator,
			Value:      body.Value,
			ThenAction: action,
			Active:     body.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rule)
	}
}

// RuleList returns the rule catalog in evaluation order.
func RuleList(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ruleSet, err := svc.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"rules": ruleSet})
	}
}

// RuleSetActive enables or disables a rule without deleting it.
func RuleSetActive(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(chi.URLParam(r, "ruleID"))
		ruleID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rule id"))
			return
		}

		var body setRuleActiveBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.SetActive(r.Context(), ruleID, *body.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}
