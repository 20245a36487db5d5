package backup

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jpcaldeira/reserva/internal/encoding"
)

// SnapshotVersion is the current snapshot document version. Older versions
// are accepted on import; missing sequences decode to empty.
const SnapshotVersion = 2

// Snapshot is the wire document produced by an export and consumed by a
// restore. Dates and times are carried as strings so the calendar date can
// be read back without time-zone interpretation.
type Snapshot struct {
	Version    int          `json:"version"`
	ExportedAt string       `json:"exportedAt,omitempty"`
	Data       SnapshotData `json:"data"`
}

// SnapshotData holds the six entity sequences plus the optional settings
// singleton. Unknown or missing sequences are treated as empty, never as an
// error.
type SnapshotData struct {
	Clients    []ClientEntry   `json:"clients,omitempty"`
	Services   []ServiceEntry  `json:"services,omitempty"`
	Categories []CategoryEntry `json:"expenseCategories,omitempty"`
	Expenses   []ExpenseEntry  `json:"expenses,omitempty"`
	Bookings   []BookingEntry  `json:"bookings,omitempty"`
	Payments   []PaymentEntry  `json:"payments,omitempty"`
	Settings   *SettingsEntry  `json:"settings,omitempty"`
}

type ClientEntry struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type ServiceEntry struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Duration int    `json:"duration,omitempty"`
}

type CategoryEntry struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type ExpenseEntry struct {
	ID           string `json:"id,omitempty"`
	Date         string `json:"date"`
	Amount       int64  `json:"amount"`
	Description  string `json:"description,omitempty"`
	CategoryID   string `json:"categoryId,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
}

type BookingEntry struct {
	ID            string             `json:"id,omitempty"`
	Date          string             `json:"date"`
	StartTime     string             `json:"startTime"`
	ClientID      string             `json:"clientId,omitempty"`
	ClientName    string             `json:"clientName"`
	ServiceID     string             `json:"serviceId,omitempty"`
	ServiceName   string             `json:"serviceName"`
	Status        string             `json:"status"`
	TotalPrice    int64              `json:"totalPrice"`
	Notes         string             `json:"notes,omitempty"`
	Items         []BookingItemEntry `json:"items,omitempty"`
	PaymentStatus string             `json:"paymentStatus,omitempty"`
	Location      string             `json:"location,omitempty"`
}

type BookingItemEntry struct {
	ServiceID   string `json:"serviceId,omitempty"`
	ServiceName string `json:"serviceName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
}

type PaymentEntry struct {
	ID        string `json:"id,omitempty"`
	BookingID string `json:"bookingId"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method,omitempty"`
	PaidAt    string `json:"paidAt,omitempty"`
}

type SettingsEntry struct {
	BusinessName string `json:"businessName,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	CalendarSync bool   `json:"calendarSync,omitempty"`
}

// DecodeSnapshot reads a snapshot file, transcoding it to UTF-8 first.
// A document that does not decode, or that carries no version tag, is a
// validation failure: no session state is created from it.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	utf8r, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.NewDecoder(utf8r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	if snap.Version < 1 {
		return nil, fmt.Errorf("%w: missing version tag", ErrInvalidSnapshot)
	}

	return &snap, nil
}

// Len returns the number of records in the given class sequence.
func (d *SnapshotData) Len(c Class) int {
	switch c {
	case ClassClient:
		return len(d.Clients)
	case ClassService:
		return len(d.Services)
	case ClassCategory:
		return len(d.Categories)
	case ClassExpense:
		return len(d.Expenses)
	case ClassBooking:
		return len(d.Bookings)
	case ClassPayment:
		return len(d.Payments)
	}

	return 0
}

// Label returns a short display string for a snapshot record, used in
// selection lists and dependency warnings.
func (d *SnapshotData) Label(ref RecordRef) string {
	if ref.Index < 0 || ref.Index >= d.Len(ref.Class) {
		return fmt.Sprintf("%s #%d", ref.Class.DisplayName(), ref.Index)
	}

	switch ref.Class {
	case ClassClient:
		return d.Clients[ref.Index].Name
	case ClassService:
		return d.Services[ref.Index].Name
	case ClassCategory:
		return d.Categories[ref.Index].Name
	case ClassExpense:
		e := d.Expenses[ref.Index]
		return fmt.Sprintf("%s %s", dateOnly(e.Date), e.Description)
	case ClassBooking:
		b := d.Bookings[ref.Index]
		return fmt.Sprintf("%s %s %s", dateOnly(b.Date), hourMinute(b.StartTime), b.ClientName)
	case ClassPayment:
		p := d.Payments[ref.Index]
		return fmt.Sprintf("payment for booking %s", p.BookingID)
	}

	return fmt.Sprintf("%s #%d", ref.Class.DisplayName(), ref.Index)
}
