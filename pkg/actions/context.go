package actions

import (
	"fmt"
	"maps"

	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/template"
)

// ActionContext is what an action knows about the firing it belongs to.
type ActionContext struct {
	ExecutionID string
	RuleID      string
	RuleName    string
	Trigger     models.TriggerKind
	EntityID    string
	Payload     map[string]any
}

func (ac ActionContext) templateData() map[string]any {
	return map[string]any{
		"payload":   ac.Payload,
		"entity_id": ac.EntityID,
		"trigger":   string(ac.Trigger),
		"rule": map[string]any{
			"id":   ac.RuleID,
			"name": ac.RuleName,
		},
	}
}

func (ac ActionContext) render(field, value string) (string, error) {
	rendered, err := template.RenderString(value, ac.templateData())
	if err != nil {
		return "", Fatal(fmt.Errorf("render %s: %w", field, err))
	}

	return rendered, nil
}

func (ac ActionContext) renderParams(params map[string]string) (map[string]string, error) {
	rendered := make(map[string]string, len(params))

	for key, value := range params {
		out, err := ac.render("param "+key, value)
		if err != nil {
			return nil, err
		}

		rendered[key] = out
	}

	return rendered, nil
}

// variables merges the rendered params over a copy of the payload for notification templates.
func (ac ActionContext) variables(params map[string]string) map[string]any {
	vars := make(map[string]any, len(ac.Payload)+len(params)+2)
	maps.Copy(vars, ac.Payload)

	for key, value := range params {
		vars[key] = value
	}

	vars["ruleName"] = ac.RuleName
	vars["trigger"] = string(ac.Trigger)

	return vars
}
