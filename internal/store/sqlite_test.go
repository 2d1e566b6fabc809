package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSaveLeadUpsertsByEmail(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.SaveLead(ctx, Lead{
		ID: "lead-1", Name: "Ada", Email: "ada@example.com", Company: "Analytical Engines",
		Phone: "555-0100", CompanySize: "11-50",
	}); err != nil {
		t.Fatalf("save lead: %v", err)
	}

	// Re-saving with the same email updates in place; empty optional fields
	// keep their earlier values.
	if err := st.SaveLead(ctx, Lead{
		ID: "lead-2", Name: "Ada Lovelace", Email: "ada@example.com", Company: "Analytical Engines Ltd",
	}); err != nil {
		t.Fatalf("upsert lead: %v", err)
	}

	lead, found, err := st.LeadByEmail(ctx, "ada@example.com")
	if err != nil || !found {
		t.Fatalf("lead lookup: found=%v err=%v", found, err)
	}
	if lead.ID != "lead-1" {
		t.Errorf("id = %s, want original lead-1", lead.ID)
	}
	if lead.Name != "Ada Lovelace" || lead.Company != "Analytical Engines Ltd" {
		t.Errorf("updated fields: name=%s company=%s", lead.Name, lead.Company)
	}
	if lead.Phone != "555-0100" || lead.CompanySize != "11-50" {
		t.Errorf("retained fields: phone=%s size=%s", lead.Phone, lead.CompanySize)
	}
}

func TestBookingsMarkSlotsTaken(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	taken, err := st.IsSlotBooked(ctx, "slot-20260106-0900")
	if err != nil {
		t.Fatalf("check slot: %v", err)
	}
	if taken {
		t.Fatal("empty store reports booked slot")
	}

	start := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
	if err := st.SaveBooking(ctx, Booking{
		ID: "booking-1", SlotID: "slot-20260106-0900", EventID: "evt-1",
		LeadEmail: "ada@example.com", Start: start, End: start.Add(30 * time.Minute),
		Notes: "wants the analytics walkthrough",
	}); err != nil {
		t.Fatalf("save booking: %v", err)
	}

	taken, err = st.IsSlotBooked(ctx, "slot-20260106-0900")
	if err != nil {
		t.Fatalf("check slot: %v", err)
	}
	if !taken {
		t.Error("booked slot not reported")
	}
}

func TestDuplicateSlotBookingRejected(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)

	booking := Booking{
		ID: "booking-1", SlotID: "slot-20260106-0900", EventID: "evt-1",
		LeadEmail: "ada@example.com", Start: start, End: start.Add(30 * time.Minute),
	}
	if err := st.SaveBooking(ctx, booking); err != nil {
		t.Fatalf("save booking: %v", err)
	}

	booking.ID = "booking-2"
	booking.EventID = "evt-2"
	if err := st.SaveBooking(ctx, booking); err == nil {
		t.Error("second booking for the same slot accepted")
	}
}
