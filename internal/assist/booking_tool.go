package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/salesline/salesline/internal/calendar"
	"github.com/salesline/salesline/internal/llm"
	"github.com/salesline/salesline/internal/mailer"
	"github.com/salesline/salesline/internal/notify"
	"github.com/salesline/salesline/internal/store"
)

// bookingTool performs the actual demo booking: persists the lead and
// booking, then notifies sales and emails the prospect. Notification and
// email failures are logged, never surfaced; the booking stands either way.
type bookingTool struct {
	cal      calendar.Calendar
	store    store.Store
	notifier notify.Notifier
	mailer   mailer.Mailer
	sess     *session
	logger   *log.Logger
}

type bookingArgs struct {
	SlotID       string   `json:"slot_id"`
	LeadInfo     LeadInfo `json:"lead_info"`
	MeetingNotes string   `json:"meeting_notes"`
}

func (t *bookingTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        "book_demo",
		Description: "Book a demo in the selected slot. Requires the prospect's name, email, and company.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"slot_id": map[string]interface{}{
					"type":        "string",
					"description": "Slot id returned by get_available_slots",
				},
				"lead_info": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"name":         map[string]interface{}{"type": "string"},
						"email":        map[string]interface{}{"type": "string"},
						"company":      map[string]interface{}{"type": "string"},
						"phone":        map[string]interface{}{"type": "string"},
						"company_size": map[string]interface{}{"type": "string"},
						"interests": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "string"},
						},
						"budget_range": map[string]interface{}{"type": "string"},
					},
					"required": []interface{}{"name", "email", "company"},
				},
				"meeting_notes": map[string]interface{}{
					"type":        "string",
					"description": "Short summary of what the prospect wants to see",
				},
			},
			"required": []interface{}{"slot_id", "lead_info", "meeting_notes"},
		},
	}
}

// Validate checks that the merged lead profile has every required field.
// Empty strings in the call are allowed by the schema so earlier-collected
// values can fill the gaps; the merge happens here.
func (t *bookingTool) Validate(args json.RawMessage) error {
	var a bookingArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	merged := t.sess.lead.Merge(a.LeadInfo)
	if missing := merged.MissingRequired(); len(missing) > 0 {
		return &llm.MissingFieldsError{Fields: missing}
	}
	return nil
}

func (t *bookingTool) Execute(ctx context.Context, args json.RawMessage) (llm.ToolOutput, error) {
	if prior := t.sess.booking; prior != nil && prior.Success {
		return llm.ToolOutput{
			Text: fmt.Sprintf("The demo is already booked (event %s). Do not book again; confirm the existing time to the user.", prior.EventID),
		}, nil
	}

	var a bookingArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return llm.ToolOutput{}, fmt.Errorf("decode arguments: %w", err)
	}

	t.sess.lead = t.sess.lead.Merge(a.LeadInfo)
	lead := t.sess.lead

	slotID := strings.TrimSpace(a.SlotID)
	if slotID == "" {
		slotID = t.sess.selectedSlotID
	}

	slot, found, err := t.cal.SlotByID(ctx, slotID, t.sess.location)
	if err != nil {
		return llm.ToolOutput{}, fmt.Errorf("resolve slot %s: %w", slotID, err)
	}
	if !found {
		return t.failure(fmt.Sprintf("slot %s does not exist or is no longer offered", slotID)), nil
	}

	taken, err := t.store.IsSlotBooked(ctx, slot.ID)
	if err != nil {
		return llm.ToolOutput{}, fmt.Errorf("check slot %s: %w", slot.ID, err)
	}
	if taken {
		return t.failure("that slot was just taken"), nil
	}

	if err := t.store.SaveLead(ctx, store.Lead{
		ID:          uuid.NewString(),
		Name:        lead.Name,
		Email:       lead.Email,
		Company:     lead.Company,
		Phone:       lead.Phone,
		CompanySize: lead.CompanySize,
		Interests:   lead.InterestsJoined(),
		BudgetRange: lead.BudgetRange,
	}); err != nil {
		return llm.ToolOutput{}, fmt.Errorf("save lead: %w", err)
	}

	eventID := uuid.NewString()
	meetLink := meetLinkFor(eventID)
	if err := t.store.SaveBooking(ctx, store.Booking{
		ID:        uuid.NewString(),
		SlotID:    slot.ID,
		EventID:   eventID,
		LeadEmail: lead.Email,
		MeetLink:  meetLink,
		Start:     slot.Start,
		End:       slot.End,
		Notes:     a.MeetingNotes,
	}); err != nil {
		// A unique-constraint loss to a concurrent booking is a domain
		// failure, not a transport error.
		return t.failure("that slot was just taken"), nil
	}

	if err := t.notifier.NotifyBooking(ctx, notify.BookingAlert{
		LeadName:    lead.Name,
		LeadEmail:   lead.Email,
		Company:     lead.Company,
		CompanySize: lead.CompanySize,
		Interests:   lead.InterestsJoined(),
		BudgetRange: lead.BudgetRange,
		SlotStart:   slot.Start,
		DisplayTime: slot.DisplayTime,
		DisplayDate: slot.DisplayDate,
		MeetLink:    meetLink,
	}); err != nil {
		t.logger.Printf("booking notification failed: %v", err)
	}
	if err := t.mailer.SendConfirmation(ctx, mailer.Confirmation{
		To:          lead.Email,
		Name:        lead.Name,
		Company:     lead.Company,
		SlotStart:   slot.Start,
		DisplayTime: slot.DisplayTime,
		DisplayDate: slot.DisplayDate,
		MeetLink:    meetLink,
	}); err != nil {
		t.logger.Printf("confirmation email failed: %v", err)
	}

	result := BookingResult{
		Success:   true,
		EventID:   eventID,
		MeetLink:  meetLink,
		StartTime: slot.Start.Format(time.RFC3339),
		EndTime:   slot.End.Format(time.RFC3339),
	}
	t.sess.booking = &result

	return llm.ToolOutput{
		Text: fmt.Sprintf("Demo booked for %s at %s. A confirmation email was sent to %s. Meet link: %s",
			slot.DisplayDate, slot.DisplayTime, lead.Email, meetLink),
		Push: NewBookingConfirmedEvent(result),
	}, nil
}

func (t *bookingTool) failure(reason string) llm.ToolOutput {
	result := BookingResult{Success: false, Error: reason}
	t.sess.booking = &result
	return llm.ToolOutput{
		Text: fmt.Sprintf("Booking failed: %s. Offer to fetch fresh availability.", reason),
		Push: NewBookingConfirmedEvent(result),
	}
}

func meetLinkFor(eventID string) string {
	short := strings.ReplaceAll(eventID, "-", "")
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("https://meet.salesline.io/%s-%s-%s", short[:3], short[3:7], short[7:])
}
