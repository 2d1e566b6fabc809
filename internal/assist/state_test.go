package assist

import (
	"reflect"
	"testing"
)

func TestLeadInfoMerge(t *testing.T) {
	base := LeadInfo{
		Name:      "Ada",
		Email:     "ada@example.com",
		Interests: []string{"Analytics"},
	}
	override := LeadInfo{
		Name:    "Ada Lovelace",
		Company: "Analytical Engines",
		Phone:   "555-0100",
	}

	merged := base.Merge(override)
	if merged.Name != "Ada Lovelace" {
		t.Errorf("override must win: name = %s", merged.Name)
	}
	if merged.Email != "ada@example.com" {
		t.Errorf("absent override must keep base: email = %s", merged.Email)
	}
	if merged.Company != "Analytical Engines" || merged.Phone != "555-0100" {
		t.Errorf("new fields missing: %+v", merged)
	}
	if !reflect.DeepEqual(merged.Interests, []string{"Analytics"}) {
		t.Errorf("interests = %v", merged.Interests)
	}
}

func TestLeadInfoMergeIgnoresBlankOverrides(t *testing.T) {
	base := LeadInfo{Name: "Ada", Email: "ada@example.com", Company: "AE"}
	merged := base.Merge(LeadInfo{Name: "  ", Email: "", Company: ""})
	if merged.Name != "Ada" || merged.Email != "ada@example.com" || merged.Company != "AE" {
		t.Errorf("blank overrides clobbered base: %+v", merged)
	}
}

func TestLeadInfoMissingRequired(t *testing.T) {
	missing := LeadInfo{Email: "a@b.com"}.MissingRequired()
	if !reflect.DeepEqual(missing, []string{"name", "company"}) {
		t.Errorf("missing = %v", missing)
	}
	if got := (LeadInfo{Name: "A", Email: "a@b.com", Company: "C"}).MissingRequired(); got != nil {
		t.Errorf("complete lead reported missing: %v", got)
	}
}
