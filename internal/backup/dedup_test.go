package backup_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jpcaldeira/reserva/internal/backup"
	"github.com/jpcaldeira/reserva/internal/model"
)

func day(value string) time.Time {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		panic(err)
	}

	return t
}

func TestDetector_Clients(t *testing.T) {
	live := &model.Dataset{
		Clients: []*model.Client{
			{Name: "Andi Martins", Phone: "+351 912 345 678", Email: "andi@example.com"},
		},
	}

	type testCase struct {
		name  string
		entry backup.ClientEntry
		want  bool
	}

	tests := []testCase{
		{
			name:  "NameMatchDifferentCase",
			entry: backup.ClientEntry{Name: "  andi martins "},
			want:  true,
		},
		{
			name:  "PhoneMatchDifferentFormatting",
			entry: backup.ClientEntry{Name: "A. Martins", Phone: "351912345678"},
			want:  true,
		},
		{
			name:  "EmailMatchOnly",
			entry: backup.ClientEntry{Name: "Someone Else", Email: "ANDI@example.com"},
			want:  true,
		},
		{
			name:  "NoFieldMatches",
			entry: backup.ClientEntry{Name: "Bruno", Phone: "911111111", Email: "bruno@example.com"},
			want:  false,
		},
		{
			name:  "EmptyOptionalFieldsDoNotMatchEmptyLive",
			entry: backup.ClientEntry{Name: "Bruno"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := backup.NewDetector(live)
			data := &backup.SnapshotData{Clients: []backup.ClientEntry{tt.entry}}

			got := d.IsDuplicate(data, backup.RecordRef{Class: backup.ClassClient, Index: 0})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetector_Services(t *testing.T) {
	live := &model.Dataset{
		Services: []*model.Service{{Name: "Corte", Price: 1500}},
	}

	type testCase struct {
		name  string
		entry backup.ServiceEntry
		want  bool
	}

	tests := []testCase{
		{name: "NameAndPriceMatch", entry: backup.ServiceEntry{Name: "corte", Price: 1500}, want: true},
		{name: "NameMatchesPriceDiffers", entry: backup.ServiceEntry{Name: "Corte", Price: 1600}, want: false},
		{name: "PriceMatchesNameDiffers", entry: backup.ServiceEntry{Name: "Coloração", Price: 1500}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := backup.NewDetector(live)
			data := &backup.SnapshotData{Services: []backup.ServiceEntry{tt.entry}}

			got := d.IsDuplicate(data, backup.RecordRef{Class: backup.ClassService, Index: 0})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetector_Expenses(t *testing.T) {
	live := &model.Dataset{
		Expenses: []*model.Expense{
			{Date: day("2025-03-01"), Amount: 80000, Description: "March rent", CategoryName: "Rent"},
		},
	}

	type testCase struct {
		name  string
		entry backup.ExpenseEntry
		want  bool
	}

	base := backup.ExpenseEntry{Date: "2025-03-01", Amount: 80000, Description: "March rent", CategoryName: "Rent"}

	oneDayOff := base
	oneDayOff.Date = "2025-03-02"

	twoDaysOff := base
	twoDaysOff.Date = "2025-03-03"

	differentAmount := base
	differentAmount.Amount = 80001

	differentCategory := base
	differentCategory.CategoryName = "Utilities"

	tests := []testCase{
		{name: "AllFourFieldsMatch", entry: base, want: true},
		{name: "DateWithinOneDay", entry: oneDayOff, want: true},
		{name: "DateTwoDaysOff", entry: twoDaysOff, want: false},
		{name: "AmountDiffers", entry: differentAmount, want: false},
		{name: "CategoryDiffers", entry: differentCategory, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := backup.NewDetector(live)
			data := &backup.SnapshotData{Expenses: []backup.ExpenseEntry{tt.entry}}

			got := d.IsDuplicate(data, backup.RecordRef{Class: backup.ClassExpense, Index: 0})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetector_Bookings(t *testing.T) {
	serviceID := mustUUID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	live := &model.Dataset{
		Bookings: []*model.Booking{
			{
				Date:        day("2025-05-10"),
				StartTime:   "14:00",
				ClientName:  "Andi",
				ServiceName: "Corte",
				Status:      model.BookingCompleted,
				TotalPrice:  1500,
				Items: []model.BookingItem{
					{ServiceID: &serviceID, ServiceName: "Corte", Quantity: 1, UnitPrice: 1500},
				},
				PaymentStatus: "paid",
			},
		},
	}

	base := backup.BookingEntry{
		Date:        "2025-05-10",
		StartTime:   "14:00:00",
		ClientName:  "andi",
		ServiceName: "Corte",
		Status:      "completed",
		TotalPrice:  1500,
		Items: []backup.BookingItemEntry{
			// Different embedded service id on purpose: ids are excluded
			// from the structural item comparison.
			{ServiceID: "00000000-0000-0000-0000-00000000beef", ServiceName: "CORTE", Quantity: 1, UnitPrice: 1500},
		},
	}

	type testCase struct {
		name   string
		mutate func(e *backup.BookingEntry)
		want   bool
	}

	tests := []testCase{
		{name: "FullMatchSecondsAndIdsIgnored", mutate: func(*backup.BookingEntry) {}, want: true},
		{
			name:   "DateOneDayLater",
			mutate: func(e *backup.BookingEntry) { e.Date = "2025-05-11" },
			want:   true,
		},
		{
			name:   "DateTwoDaysLater",
			mutate: func(e *backup.BookingEntry) { e.Date = "2025-05-12" },
			want:   false,
		},
		{
			name:   "TimeDiffers",
			mutate: func(e *backup.BookingEntry) { e.StartTime = "15:00" },
			want:   false,
		},
		{
			name:   "StatusDiffers",
			mutate: func(e *backup.BookingEntry) { e.Status = "cancelled" },
			want:   false,
		},
		{
			name:   "TotalPriceDiffers",
			mutate: func(e *backup.BookingEntry) { e.TotalPrice = 2000 },
			want:   false,
		},
		{
			name:   "ItemQuantityDiffers",
			mutate: func(e *backup.BookingEntry) { e.Items[0].Quantity = 2 },
			want:   false,
		},
		{
			name:   "NoItemsInSnapshotStillMatches",
			mutate: func(e *backup.BookingEntry) { e.Items = nil },
			want:   true,
		},
		{
			name:   "PaymentStatusAbsentInSnapshotStillMatches",
			mutate: func(*backup.BookingEntry) {},
			want:   true,
		},
		{
			name:   "PaymentStatusPopulatedAndDifferent",
			mutate: func(e *backup.BookingEntry) { e.PaymentStatus = "pending" },
			want:   false,
		},
		{
			name:   "LocationAbsentOnBothSidesMatches",
			mutate: func(e *backup.BookingEntry) { e.Location = "" },
			want:   true,
		},
		{
			name:   "LocationPopulatedOnlyInSnapshotStillMatches",
			mutate: func(e *backup.BookingEntry) { e.Location = "Studio A" },
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := base
			entry.Items = append([]backup.BookingItemEntry(nil), base.Items...)
			tt.mutate(&entry)

			d := backup.NewDetector(live)
			data := &backup.SnapshotData{Bookings: []backup.BookingEntry{entry}}

			got := d.IsDuplicate(data, backup.RecordRef{Class: backup.ClassBooking, Index: 0})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetector_PaymentsInheritBookingVerdict(t *testing.T) {
	live := &model.Dataset{
		Bookings: []*model.Booking{
			{
				Date:        day("2025-05-10"),
				StartTime:   "10:00",
				ClientName:  "Bruno",
				ServiceName: "Corte",
				Status:      model.BookingCompleted,
				TotalPrice:  1500,
			},
		},
	}

	data := &backup.SnapshotData{
		Bookings: []backup.BookingEntry{
			{ID: "b-dup", Date: "2025-05-10", StartTime: "10:00", ClientName: "Bruno", ServiceName: "Corte", Status: "completed", TotalPrice: 1500},
			{ID: "b-new", Date: "2025-06-01", StartTime: "11:00", ClientName: "Bruno", ServiceName: "Corte", Status: "scheduled", TotalPrice: 1500},
		},
		Payments: []backup.PaymentEntry{
			{BookingID: "b-dup", Amount: 1500},
			{BookingID: "b-new", Amount: 1500},
			{BookingID: "missing", Amount: 1500},
		},
	}

	mask := backup.NewDetector(live).BuildMask(data)

	assert.True(t, mask.Duplicate(backup.RecordRef{Class: backup.ClassPayment, Index: 0}))
	assert.False(t, mask.Duplicate(backup.RecordRef{Class: backup.ClassPayment, Index: 1}))
	assert.True(t, mask.Duplicate(backup.RecordRef{Class: backup.ClassPayment, Index: 2}))
}

func TestDetector_BuildMaskCountsPerClass(t *testing.T) {
	live := &model.Dataset{
		Clients:    []*model.Client{{Name: "Bruno"}},
		Categories: []*model.ExpenseCategory{{Name: "Rent"}},
	}

	data := &backup.SnapshotData{
		Clients: []backup.ClientEntry{
			{Name: "Bruno"},
			{Name: "Andi"},
		},
		Categories: []backup.CategoryEntry{
			{Name: "rent"},
			{Name: "Utilities"},
		},
	}

	mask := backup.NewDetector(live).BuildMask(data)

	assert.Equal(t, []bool{true, false}, mask[backup.ClassClient])
	assert.Equal(t, []bool{true, false}, mask[backup.ClassCategory])
}
