// Package calendar provides demo-slot discovery for the booking assistant.
// The engine only sees the Calendar interface; real scheduling backends can
// be swapped in behind it.
package calendar

import (
	"context"
	"time"
)

// TimePreference filters slots by time of day.
type TimePreference string

const (
	PreferenceMorning   TimePreference = "morning"
	PreferenceAfternoon TimePreference = "afternoon"
	PreferenceAny       TimePreference = "any"
)

// Slot is one bookable demo window, rendered in the requester's timezone.
type Slot struct {
	ID          string    `json:"id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DisplayTime string    `json:"displayTime"`
	DisplayDate string    `json:"displayDate"`
}

// SlotQuery narrows the offered slots.
type SlotQuery struct {
	// PreferredDate is a YYYY-MM-DD date string; empty means any day.
	PreferredDate string
	Preference    TimePreference
	Location      *time.Location
}

// Calendar lists bookable slots and resolves slot ids chosen earlier in the
// conversation.
type Calendar interface {
	AvailableSlots(ctx context.Context, q SlotQuery) ([]Slot, error)
	SlotByID(ctx context.Context, id string, loc *time.Location) (Slot, bool, error)
}
