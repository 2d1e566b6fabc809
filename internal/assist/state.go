package assist

import (
	"strings"
	"time"
)

// LeadInfo is the prospect profile collected over the conversation. Name,
// email and company are required before a demo can be booked.
type LeadInfo struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Company     string   `json:"company"`
	Phone       string   `json:"phone,omitempty"`
	CompanySize string   `json:"company_size,omitempty"`
	Interests   []string `json:"interests,omitempty"`
	BudgetRange string   `json:"budget_range,omitempty"`
}

// Merge overlays override onto base: a field supplied by the model in the
// current call wins over what the request carried, absent fields keep the
// earlier value.
func (base LeadInfo) Merge(override LeadInfo) LeadInfo {
	out := base
	if strings.TrimSpace(override.Name) != "" {
		out.Name = override.Name
	}
	if strings.TrimSpace(override.Email) != "" {
		out.Email = override.Email
	}
	if strings.TrimSpace(override.Company) != "" {
		out.Company = override.Company
	}
	if strings.TrimSpace(override.Phone) != "" {
		out.Phone = override.Phone
	}
	if strings.TrimSpace(override.CompanySize) != "" {
		out.CompanySize = override.CompanySize
	}
	if len(override.Interests) > 0 {
		out.Interests = override.Interests
	}
	if strings.TrimSpace(override.BudgetRange) != "" {
		out.BudgetRange = override.BudgetRange
	}
	return out
}

// MissingRequired lists required fields that are still empty after merging.
func (l LeadInfo) MissingRequired() []string {
	var missing []string
	if strings.TrimSpace(l.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(l.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(l.Company) == "" {
		missing = append(missing, "company")
	}
	return missing
}

// InterestsJoined renders the interest list for storage and notifications.
func (l LeadInfo) InterestsJoined() string {
	return strings.Join(l.Interests, ", ")
}

// session is the per-request mutable state shared by the tool handlers.
// Requests never share a session, and handlers run sequentially, so no
// locking is needed.
type session struct {
	lead           LeadInfo
	selectedSlotID string
	location       *time.Location

	// booking holds the first successful booking of this request so a
	// repeated book_demo call in the same exchange cannot double-book.
	booking *BookingResult
}

func newSession(lead LeadInfo, selectedSlotID string, loc *time.Location) *session {
	if loc == nil {
		loc = time.UTC
	}
	return &session{
		lead:           lead,
		selectedSlotID: selectedSlotID,
		location:       loc,
	}
}
