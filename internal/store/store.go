// Package store persists leads and confirmed bookings. These are the only
// artifacts that outlive a single conversation request.
package store

import (
	"context"
	"time"
)

// Lead is a captured prospect record, upserted by email.
type Lead struct {
	ID          string
	Name        string
	Email       string
	Company     string
	Phone       string
	CompanySize string
	Interests   string // comma-joined
	BudgetRange string
	CreatedAt   time.Time
}

// Booking is one confirmed demo booking.
type Booking struct {
	ID        string
	SlotID    string
	EventID   string
	LeadEmail string
	MeetLink  string
	Start     time.Time
	End       time.Time
	Notes     string
	CreatedAt time.Time
}

// Store is the persistence collaborator used by the booking tools.
type Store interface {
	SaveLead(ctx context.Context, lead Lead) error
	SaveBooking(ctx context.Context, booking Booking) error
	IsSlotBooked(ctx context.Context, slotID string) (bool, error)
	Close() error
}
