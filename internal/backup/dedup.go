package backup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jpcaldeira/reserva/internal/model"
)

// Mask records, per class, which snapshot records already have a live
// equivalent. It is computed once per snapshot load and never mutated.
type Mask map[Class][]bool

// Duplicate reports the flag for a record, false for out-of-range refs.
func (m Mask) Duplicate(ref RecordRef) bool {
	flags := m[ref.Class]
	if ref.Index < 0 || ref.Index >= len(flags) {
		return false
	}

	return flags[ref.Index]
}

// Detector answers whether a snapshot record already exists in the live
// dataset. All checks are pure field heuristics: embedded ids are never
// compared because they are reassigned on import.
type Detector struct {
	live *model.Dataset
}

func NewDetector(live *model.Dataset) *Detector {
	return &Detector{live: live}
}

// BuildMask evaluates every record in the snapshot against the live
// dataset. Payments inherit the verdict of the booking they reference.
func (d *Detector) BuildMask(data *SnapshotData) Mask {
	mask := make(Mask, len(Classes))

	for _, c := range Classes {
		flags := make([]bool, data.Len(c))
		for i := range flags {
			flags[i] = d.IsDuplicate(data, RecordRef{Class: c, Index: i})
		}

		mask[c] = flags
	}

	return mask
}

// IsDuplicate reports whether the given snapshot record has a live
// equivalent under its class's matching policy.
func (d *Detector) IsDuplicate(data *SnapshotData, ref RecordRef) bool {
	switch ref.Class {
	case ClassClient:
		return d.clientExists(data.Clients[ref.Index])
	case ClassService:
		return d.serviceExists(data.Services[ref.Index])
	case ClassCategory:
		return d.categoryExists(data.Categories[ref.Index])
	case ClassExpense:
		return d.expenseExists(data.Expenses[ref.Index])
	case ClassBooking:
		return d.bookingExists(data.Bookings[ref.Index])
	case ClassPayment:
		// A payment is a duplicate exactly when its booking is. Payments
		// whose booking is missing from the snapshot can never be imported,
		// so they count as duplicates too.
		bookingIdx := data.bookingIndexByID(data.Payments[ref.Index].BookingID)
		if bookingIdx < 0 {
			return true
		}

		return d.bookingExists(data.Bookings[bookingIdx])
	}

	return false
}

// clientExists matches on any of name, phone (digits only) or email.
// Inclusive-OR on purpose: a contact reachable the same way is the same
// contact, even under a different spelling of the name.
func (d *Detector) clientExists(e ClientEntry) bool {
	name := fold(e.Name)
	phone := digitsOnly(e.Phone)
	email := fold(e.Email)

	for _, c := range d.live.Clients {
		if name != "" && fold(c.Name) == name {
			return true
		}

		if phone != "" && digitsOnly(c.Phone) == phone {
			return true
		}

		if email != "" && fold(c.Email) == email {
			return true
		}
	}

	return false
}

func (d *Detector) serviceExists(e ServiceEntry) bool {
	for _, s := range d.live.Services {
		if foldEqual(s.Name, e.Name) && s.Price == e.Price {
			return true
		}
	}

	return false
}

func (d *Detector) categoryExists(e CategoryEntry) bool {
	for _, c := range d.live.Categories {
		if foldEqual(c.Name, e.Name) {
			return true
		}
	}

	return false
}

// expenseExists requires all four fields to line up; two unrelated expenses
// can easily share a date or an amount.
func (d *Detector) expenseExists(e ExpenseEntry) bool {
	for _, x := range d.live.Expenses {
		if !datesClose(e.Date, x.Date.Format("2006-01-02")) {
			continue
		}

		if x.Amount != e.Amount {
			continue
		}

		if !foldEqual(x.Description, e.Description) {
			continue
		}

		if !foldEqual(x.CategoryName, e.CategoryName) {
			continue
		}

		return true
	}

	return false
}

// bookingExists is a full conjunction over date (one-day band), start time
// (hour:minute), client name, service name, status, total price and the
// service line items. Payment status and location participate only when
// both records carry them, so snapshots from before those fields existed
// still deduplicate.
func (d *Detector) bookingExists(e BookingEntry) bool {
	for _, b := range d.live.Bookings {
		if !datesClose(e.Date, b.Date.Format("2006-01-02")) {
			continue
		}

		if hourMinute(e.StartTime) != hourMinute(b.StartTime) {
			continue
		}

		if !foldEqual(e.ClientName, b.ClientName) {
			continue
		}

		if !foldEqual(e.ServiceName, b.ServiceName) {
			continue
		}

		if !foldEqual(e.Status, string(b.Status)) {
			continue
		}

		if e.TotalPrice != b.TotalPrice {
			continue
		}

		if !itemsMatch(e.Items, b.Items) {
			continue
		}

		if !optionalMatch(e.PaymentStatus, b.PaymentStatus) {
			continue
		}

		if !optionalMatch(e.Location, b.Location) {
			continue
		}

		return true
	}

	return false
}

// optionalMatch compares a field that older snapshots may lack: when either
// side is empty the field does not block a duplicate verdict.
func optionalMatch(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return true
	}

	return foldEqual(a, b)
}

// itemsMatch compares booking line items structurally on the user-entered
// sub-fields (service name, quantity, unit price). Embedded service ids are
// excluded: they are not stable across a re-import. Exports made before
// line items existed carry none, which does not block a match.
func itemsMatch(snap []BookingItemEntry, live []model.BookingItem) bool {
	if len(snap) == 0 || len(live) == 0 {
		return true
	}

	if len(snap) != len(live) {
		return false
	}

	a := make([]string, len(snap))
	for i, it := range snap {
		a[i] = itemKey(it.ServiceName, it.Quantity, it.UnitPrice)
	}

	b := make([]string, len(live))
	for i, it := range live {
		b[i] = itemKey(it.ServiceName, it.Quantity, it.UnitPrice)
	}

	sort.Strings(a)
	sort.Strings(b)

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func itemKey(name string, qty int, unitPrice int64) string {
	return fmt.Sprintf("%s\x00%d\x00%d", fold(name), qty, unitPrice)
}
