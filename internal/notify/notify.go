// Package notify pushes booking alerts to the sales team.
package notify

import (
	"context"
	"time"
)

// BookingAlert carries the fields worth pinging a human about.
type BookingAlert struct {
	LeadName    string
	LeadEmail   string
	Company     string
	CompanySize string
	Interests   string
	BudgetRange string
	SlotStart   time.Time
	DisplayTime string
	DisplayDate string
	MeetLink    string
}

// Notifier delivers a booking alert. Failures are logged by callers and never
// surface to the prospect.
type Notifier interface {
	NotifyBooking(ctx context.Context, alert BookingAlert) error
}

// Noop is used when no notification channel is configured.
type Noop struct{}

func (Noop) NotifyBooking(ctx context.Context, alert BookingAlert) error { return nil }
