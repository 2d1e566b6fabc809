package assist

import "github.com/salesline/salesline/internal/calendar"

// Outbound event payloads written to the client as `data: <json>` records.
// The type field discriminates variants; field names are part of the wire
// contract with the web client.

type TextDeltaEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func NewTextDeltaEvent(content string) TextDeltaEvent {
	return TextDeltaEvent{Type: "text_delta", Content: content}
}

type ToolUseStartEvent struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func NewToolUseStartEvent(name string) ToolUseStartEvent {
	return ToolUseStartEvent{Type: "tool_use_start", Name: name}
}

type AvailableSlotsEvent struct {
	Type  string          `json:"type"`
	Slots []calendar.Slot `json:"slots"`
}

func NewAvailableSlotsEvent(slots []calendar.Slot) AvailableSlotsEvent {
	if slots == nil {
		slots = []calendar.Slot{}
	}
	return AvailableSlotsEvent{Type: "available_slots", Slots: slots}
}

// FieldDescriptor tells the client how to render one lead-form input.
type FieldDescriptor struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"` // text, email, tel, select, multiselect
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

type LeadFormRequestEvent struct {
	Type    string            `json:"type"`
	Fields  []FieldDescriptor `json:"fields"`
	Context string            `json:"context,omitempty"`
}

func NewLeadFormRequestEvent(fields []FieldDescriptor, context string) LeadFormRequestEvent {
	return LeadFormRequestEvent{Type: "lead_form_request", Fields: fields, Context: context}
}

// BookingResult reports one booking attempt. Domain failures (slot already
// taken) are results with Success false, not errors.
type BookingResult struct {
	Success   bool   `json:"success"`
	EventID   string `json:"eventId,omitempty"`
	MeetLink  string `json:"meetLink,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	Error     string `json:"error,omitempty"`
}

type BookingConfirmedEvent struct {
	Type    string        `json:"type"`
	Booking BookingResult `json:"booking"`
}

func NewBookingConfirmedEvent(result BookingResult) BookingConfirmedEvent {
	return BookingConfirmedEvent{Type: "booking_confirmed", Booking: result}
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: "error", Message: message}
}

type DoneEvent struct {
	Type string `json:"type"`
}

func NewDoneEvent() DoneEvent {
	return DoneEvent{Type: "done"}
}
