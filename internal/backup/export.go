package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jpcaldeira/reserva/internal/model"
)

// Export builds a versioned snapshot document from the live dataset.
func (s *Service) Export(ctx context.Context) (*Snapshot, error) {
	live, err := s.repo.LoadDataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading live dataset: %w", err)
	}

	return BuildSnapshot(live, time.Now()), nil
}

// BuildSnapshot converts a live dataset into the wire document. Dates are
// written as plain calendar dates so a later import can read them back
// without time-zone interpretation.
func BuildSnapshot(live *model.Dataset, now time.Time) *Snapshot {
	snap := &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: now.UTC().Format(time.RFC3339),
	}

	for _, c := range live.Clients {
		snap.Data.Clients = append(snap.Data.Clients, ClientEntry{
			ID:    uuidStr(c.ID),
			Name:  c.Name,
			Phone: c.Phone,
			Email: c.Email,
			Notes: c.Notes,
		})
	}

	for _, s := range live.Services {
		snap.Data.Services = append(snap.Data.Services, ServiceEntry{
			ID:       uuidStr(s.ID),
			Name:     s.Name,
			Price:    s.Price,
			Duration: s.Duration,
		})
	}

	for _, c := range live.Categories {
		snap.Data.Categories = append(snap.Data.Categories, CategoryEntry{
			ID:   uuidStr(c.ID),
			Name: c.Name,
		})
	}

	for _, e := range live.Expenses {
		snap.Data.Expenses = append(snap.Data.Expenses, ExpenseEntry{
			ID:           uuidStr(e.ID),
			Date:         e.Date.Format(time.DateOnly),
			Amount:       e.Amount,
			Description:  e.Description,
			CategoryID:   uuidStr(e.CategoryID),
			CategoryName: e.CategoryName,
		})
	}

	for _, b := range live.Bookings {
		entry := BookingEntry{
			ID:            uuidStr(b.ID),
			Date:          b.Date.Format(time.DateOnly),
			StartTime:     b.StartTime,
			ClientID:      uuidStr(b.ClientID),
			ClientName:    b.ClientName,
			ServiceID:     uuidStr(b.ServiceID),
			ServiceName:   b.ServiceName,
			Status:        string(b.Status),
			TotalPrice:    b.TotalPrice,
			Notes:         b.Notes,
			PaymentStatus: b.PaymentStatus,
			Location:      b.Location,
		}

		for _, it := range b.Items {
			item := BookingItemEntry{
				ServiceName: it.ServiceName,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
			}
			if it.ServiceID != nil {
				item.ServiceID = uuidStr(*it.ServiceID)
			}

			entry.Items = append(entry.Items, item)
		}

		snap.Data.Bookings = append(snap.Data.Bookings, entry)
	}

	for _, p := range live.Payments {
		snap.Data.Payments = append(snap.Data.Payments, PaymentEntry{
			ID:        uuidStr(p.ID),
			BookingID: uuidStr(p.BookingID),
			Amount:    p.Amount,
			Method:    p.Method,
			PaidAt:    p.PaidAt.UTC().Format(time.RFC3339),
		})
	}

	if live.Settings != nil {
		snap.Data.Settings = &SettingsEntry{
			BusinessName: live.Settings.BusinessName,
			Currency:     live.Settings.Currency,
			Timezone:     live.Settings.Timezone,
			CalendarSync: live.Settings.CalendarSync,
		}
	}

	return snap
}

// uuidStr renders a reference id, leaving the nil uuid empty so broken
// references export as absent rather than as a zero id.
func uuidStr(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}

	return id.String()
}
