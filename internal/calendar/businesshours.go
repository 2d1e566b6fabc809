package calendar

import (
	"context"
	"fmt"
	"time"
)

// BookedChecker reports whether a slot id already has a confirmed booking.
// Implemented by the bookings store.
type BookedChecker interface {
	IsSlotBooked(ctx context.Context, slotID string) (bool, error)
}

// Options shape the generated slot window.
type Options struct {
	DaysAhead   int // Business days to offer, starting tomorrow
	SlotMinutes int
	StartHour   int // First slot of the day (24h)
	EndHour     int // Slots end before this hour
}

func (o Options) withDefaults() Options {
	if o.DaysAhead <= 0 {
		o.DaysAhead = 5
	}
	if o.SlotMinutes <= 0 {
		o.SlotMinutes = 30
	}
	if o.StartHour <= 0 {
		o.StartHour = 9
	}
	if o.EndHour <= o.StartHour {
		o.EndHour = o.StartHour + 8
	}
	return o
}

// BusinessHours generates weekday slots over a rolling window. Slot ids are
// deterministic (slot-YYYYMMDD-HHMM) so a slot offered earlier in a
// conversation can be resolved again at booking time.
type BusinessHours struct {
	opts   Options
	booked BookedChecker
	now    func() time.Time
}

func NewBusinessHours(opts Options, booked BookedChecker) *BusinessHours {
	return &BusinessHours{
		opts:   opts.withDefaults(),
		booked: booked,
		now:    time.Now,
	}
}

// SetClock overrides the time source for tests.
func (c *BusinessHours) SetClock(now func() time.Time) {
	c.now = now
}

func (c *BusinessHours) AvailableSlots(ctx context.Context, q SlotQuery) ([]Slot, error) {
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	pref := q.Preference
	if pref == "" {
		pref = PreferenceAny
	}

	var out []Slot
	for _, slot := range c.generate(loc) {
		if q.PreferredDate != "" && slot.Start.Format("2006-01-02") != q.PreferredDate {
			continue
		}
		if !matchesPreference(slot.Start, pref) {
			continue
		}
		if c.booked != nil {
			taken, err := c.booked.IsSlotBooked(ctx, slot.ID)
			if err != nil {
				return nil, fmt.Errorf("check slot %s: %w", slot.ID, err)
			}
			if taken {
				continue
			}
		}
		out = append(out, slot)
	}
	return out, nil
}

func (c *BusinessHours) SlotByID(ctx context.Context, id string, loc *time.Location) (Slot, bool, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, slot := range c.generate(loc) {
		if slot.ID == id {
			return slot, true, nil
		}
	}
	return Slot{}, false, nil
}

func (c *BusinessHours) generate(loc *time.Location) []Slot {
	var slots []Slot
	day := c.now().In(loc)
	remaining := c.opts.DaysAhead

	for remaining > 0 {
		day = day.AddDate(0, 0, 1)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		remaining--

		start := time.Date(day.Year(), day.Month(), day.Day(), c.opts.StartHour, 0, 0, 0, loc)
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), c.opts.EndHour, 0, 0, 0, loc)
		for !start.Add(time.Duration(c.opts.SlotMinutes) * time.Minute).After(dayEnd) {
			end := start.Add(time.Duration(c.opts.SlotMinutes) * time.Minute)
			slots = append(slots, Slot{
				ID:          fmt.Sprintf("slot-%s", start.Format("20060102-1504")),
				Start:       start,
				End:         end,
				DisplayTime: start.Format("3:04 PM"),
				DisplayDate: start.Format("Monday, January 2"),
			})
			start = end
		}
	}
	return slots
}

func matchesPreference(start time.Time, pref TimePreference) bool {
	switch pref {
	case PreferenceMorning:
		return start.Hour() < 12
	case PreferenceAfternoon:
		return start.Hour() >= 12
	default:
		return true
	}
}
