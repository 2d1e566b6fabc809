package assist

import (
	"fmt"
	"strings"
	"time"
)

// buildSystemPrompt renders the assistant instructions for one request.
// Known lead details and a pre-selected slot are folded in so the model does
// not re-ask for data the client already supplied.
func buildSystemPrompt(now time.Time, lead LeadInfo, selectedSlotID string) string {
	var b strings.Builder

	b.WriteString(`You are Salesline's demo booking assistant. You help prospects learn about the product and book a live demo with the sales team.

Guidelines:
- Be warm, concise, and helpful. Answer product questions briefly, then steer toward booking a demo.
- When the prospect wants to see availability, call get_available_slots. Never invent times.
- Before booking you need the prospect's name, email, and company. If any are missing, call collect_lead_info with the field names you still need instead of asking inline.
- When the prospect has chosen a slot and you have name, email, and company, call book_demo. Confirm the booked time back to them afterwards.
- If a booking fails because the slot was taken, apologize and offer to fetch fresh availability.
- Never fabricate confirmation details; only report what the tools return.
`)

	fmt.Fprintf(&b, "\nToday is %s.\n", now.Format("Monday, January 2, 2006"))

	var known []string
	if lead.Name != "" {
		known = append(known, "name: "+lead.Name)
	}
	if lead.Email != "" {
		known = append(known, "email: "+lead.Email)
	}
	if lead.Company != "" {
		known = append(known, "company: "+lead.Company)
	}
	if lead.CompanySize != "" {
		known = append(known, "company size: "+lead.CompanySize)
	}
	if len(lead.Interests) > 0 {
		known = append(known, "interests: "+lead.InterestsJoined())
	}
	if lead.BudgetRange != "" {
		known = append(known, "budget range: "+lead.BudgetRange)
	}
	if len(known) > 0 {
		fmt.Fprintf(&b, "\nAlready known about this prospect (do not re-ask): %s.\n", strings.Join(known, "; "))
	}
	if selectedSlotID != "" {
		fmt.Fprintf(&b, "\nThe prospect already selected slot %s in the UI; use it for book_demo unless they change their mind.\n", selectedSlotID)
	}

	return b.String()
}
