package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/salesline/salesline/internal/llm"
)

// leadFields describes every collectible lead field, keyed by the names the
// model is allowed to request.
var leadFields = map[string]FieldDescriptor{
	"name":         {Name: "name", Label: "Full name", Kind: "text", Required: true},
	"email":        {Name: "email", Label: "Work email", Kind: "email", Required: true},
	"company":      {Name: "company", Label: "Company", Kind: "text", Required: true},
	"phone":        {Name: "phone", Label: "Phone number", Kind: "tel"},
	"company_size": {Name: "company_size", Label: "Company size", Kind: "select", Options: []string{"1-10", "11-50", "51-200", "201-1000", "1000+"}},
	"interests":    {Name: "interests", Label: "What are you interested in?", Kind: "multiselect", Options: []string{"Analytics", "Automation", "Integrations", "Enterprise security"}},
	"budget_range": {Name: "budget_range", Label: "Budget range", Kind: "select", Options: []string{"< $1k/mo", "$1k-5k/mo", "$5k-20k/mo", "> $20k/mo"}},
}

// fieldOrder keeps the rendered form stable regardless of request order.
var fieldOrder = []string{"name", "email", "company", "phone", "company_size", "interests", "budget_range"}

// leadTool asks the client to render a structured lead-capture form instead
// of having the model interrogate the user field by field.
type leadTool struct {
	sess *session
}

type leadArgs struct {
	FieldsNeeded []string `json:"fields_needed"`
	Context      string   `json:"context"`
}

func (t *leadTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        "collect_lead_info",
		Description: "Show the user a form collecting contact details. Use instead of asking for details in chat.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"fields_needed": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []interface{}{"name", "email", "company", "phone", "company_size", "interests", "budget_range"},
					},
				},
				"context": map[string]interface{}{
					"type":        "string",
					"description": "Short note shown above the form explaining why the details are needed",
				},
			},
			"required": []interface{}{"fields_needed"},
		},
	}
}

func (t *leadTool) Validate(args json.RawMessage) error { return nil }

func (t *leadTool) Execute(ctx context.Context, args json.RawMessage) (llm.ToolOutput, error) {
	var a leadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return llm.ToolOutput{}, fmt.Errorf("decode arguments: %w", err)
	}

	requested := make(map[string]bool, len(a.FieldsNeeded))
	for _, name := range a.FieldsNeeded {
		requested[name] = true
	}

	var fields []FieldDescriptor
	for _, name := range fieldOrder {
		if requested[name] && !t.haveField(name) {
			fields = append(fields, leadFields[name])
		}
	}
	if len(fields) == 0 {
		return llm.ToolOutput{
			Text: "All requested details are already known. Proceed without asking again.",
		}, nil
	}

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return llm.ToolOutput{
		Text: fmt.Sprintf("A form requesting %s has been shown to the user. Wait for their reply; do not ask for these details in chat.", strings.Join(names, ", ")),
		Push: NewLeadFormRequestEvent(fields, a.Context),
	}, nil
}

func (t *leadTool) haveField(name string) bool {
	lead := t.sess.lead
	switch name {
	case "name":
		return lead.Name != ""
	case "email":
		return lead.Email != ""
	case "company":
		return lead.Company != ""
	case "phone":
		return lead.Phone != ""
	case "company_size":
		return lead.CompanySize != ""
	case "interests":
		return len(lead.Interests) > 0
	case "budget_range":
		return lead.BudgetRange != ""
	default:
		return false
	}
}
