package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/salesline/salesline/internal/calendar"
	"github.com/salesline/salesline/internal/llm"
)

// slotsTool exposes calendar availability to the model and pushes the slot
// list to the client for rendering.
type slotsTool struct {
	cal  calendar.Calendar
	sess *session
}

type slotsArgs struct {
	PreferredDate  string `json:"preferred_date"`
	TimePreference string `json:"time_preference"`
}

func (t *slotsTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        "get_available_slots",
		Description: "Get available demo time slots. Optionally filter by a preferred date or time of day.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"preferred_date": map[string]interface{}{
					"type":        "string",
					"description": "Preferred date in YYYY-MM-DD format",
				},
				"time_preference": map[string]interface{}{
					"type": "string",
					"enum": []interface{}{"morning", "afternoon", "any"},
				},
			},
		},
	}
}

func (t *slotsTool) Validate(args json.RawMessage) error { return nil }

func (t *slotsTool) Execute(ctx context.Context, args json.RawMessage) (llm.ToolOutput, error) {
	var a slotsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return llm.ToolOutput{}, fmt.Errorf("decode arguments: %w", err)
	}

	pref := calendar.TimePreference(a.TimePreference)
	if pref == "" {
		pref = calendar.PreferenceAny
	}
	slots, err := t.cal.AvailableSlots(ctx, calendar.SlotQuery{
		PreferredDate: a.PreferredDate,
		Preference:    pref,
		Location:      t.sess.location,
	})
	if err != nil {
		return llm.ToolOutput{}, fmt.Errorf("list available slots: %w", err)
	}

	return llm.ToolOutput{
		Text: formatSlotsForModel(slots),
		Push: NewAvailableSlotsEvent(slots),
	}, nil
}

func formatSlotsForModel(slots []calendar.Slot) string {
	if len(slots) == 0 {
		return "No slots are available for that filter. Suggest the user try a different day or time of day."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d available slots (already shown to the user as buttons):\n", len(slots))
	for _, s := range slots {
		fmt.Fprintf(&b, "- %s: %s at %s\n", s.ID, s.DisplayDate, s.DisplayTime)
	}
	b.WriteString("Reference slots by id when booking.")
	return b.String()
}
