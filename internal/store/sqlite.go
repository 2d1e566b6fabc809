package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS leads (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    company TEXT NOT NULL,
    phone TEXT,
    company_size TEXT,
    interests TEXT,
    budget_range TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bookings (
    id TEXT PRIMARY KEY,
    slot_id TEXT NOT NULL UNIQUE,
    event_id TEXT NOT NULL,
    lead_email TEXT NOT NULL,
    meet_link TEXT,
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP NOT NULL,
    notes TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_bookings_slot_id ON bookings(slot_id);
CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email);
`

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveLead(ctx context.Context, lead Lead) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (id, name, email, company, phone, company_size, interests, budget_range)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			company = excluded.company,
			phone = CASE WHEN excluded.phone != '' THEN excluded.phone ELSE leads.phone END,
			company_size = CASE WHEN excluded.company_size != '' THEN excluded.company_size ELSE leads.company_size END,
			interests = CASE WHEN excluded.interests != '' THEN excluded.interests ELSE leads.interests END,
			budget_range = CASE WHEN excluded.budget_range != '' THEN excluded.budget_range ELSE leads.budget_range END,
			updated_at = CURRENT_TIMESTAMP`,
		lead.ID, lead.Name, lead.Email, lead.Company, lead.Phone, lead.CompanySize, lead.Interests, lead.BudgetRange)
	if err != nil {
		return fmt.Errorf("save lead: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveBooking(ctx context.Context, booking Booking) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, slot_id, event_id, lead_email, meet_link, start_time, end_time, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID, booking.SlotID, booking.EventID, booking.LeadEmail, booking.MeetLink,
		booking.Start.UTC(), booking.End.UTC(), booking.Notes)
	if err != nil {
		return fmt.Errorf("save booking: %w", err)
	}
	return nil
}

// LeadByEmail fetches a stored lead record.
func (s *SQLiteStore) LeadByEmail(ctx context.Context, email string) (Lead, bool, error) {
	var lead Lead
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, company, phone, company_size, interests, budget_range, created_at
		FROM leads WHERE email = ?`, email).
		Scan(&lead.ID, &lead.Name, &lead.Email, &lead.Company, &lead.Phone,
			&lead.CompanySize, &lead.Interests, &lead.BudgetRange, &lead.CreatedAt)
	if err == sql.ErrNoRows {
		return Lead{}, false, nil
	}
	if err != nil {
		return Lead{}, false, fmt.Errorf("query lead: %w", err)
	}
	return lead, true, nil
}

func (s *SQLiteStore) IsSlotBooked(ctx context.Context, slotID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE slot_id = ?`, slotID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query bookings: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
