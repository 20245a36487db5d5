package backup_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jpcaldeira/reserva/internal/backup"
	"github.com/jpcaldeira/reserva/internal/model"
)

func mustUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		panic(err)
	}

	return id
}

// fixtureLive is a small live dataset: one client, one service and one
// completed booking between them.
func fixtureLive() *model.Dataset {
	return &model.Dataset{
		Clients:  []*model.Client{{Name: "Bruno"}},
		Services: []*model.Service{{Name: "Corte", Price: 1500}},
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
}

// fixtureSnapshot pairs with fixtureLive. Against that dataset the expected
// duplicates are: client 1 (Bruno), service 0 (Corte), booking 1 and, by
// inheritance, payment 1.
func fixtureSnapshot() *backup.Snapshot {
	return &backup.Snapshot{
		Version:    backup.SnapshotVersion,
		ExportedAt: "2025-06-01T10:00:00Z",
		Data: backup.SnapshotData{
			Clients: []backup.ClientEntry{
				{ID: "c1", Name: "Andi", Phone: "+351 912 345 678", Email: "andi@example.com"},
				{ID: "c2", Name: "Bruno"},
			},
			Services: []backup.ServiceEntry{
				{ID: "s1", Name: "Corte", Price: 1500},
				{ID: "s2", Name: "Coloração", Price: 4500},
			},
			Categories: []backup.CategoryEntry{
				{ID: "g1", Name: "Rent"},
			},
			Expenses: []backup.ExpenseEntry{
				{ID: "e1", Date: "2025-03-01", Amount: 80000, Description: "March rent", CategoryID: "g1", CategoryName: "Rent"},
			},
			Bookings: []backup.BookingEntry{
				{
					ID: "b1", Date: "2025-05-12", StartTime: "14:00",
					ClientID: "c1", ClientName: "Andi",
					ServiceID: "s2", ServiceName: "Coloração",
					Status: "scheduled", TotalPrice: 4500,
				},
				{
					ID: "b2", Date: "2025-05-10", StartTime: "10:00",
					ClientID: "c2", ClientName: "Bruno",
					ServiceID: "s1", ServiceName: "Corte",
					Status: "completed", TotalPrice: 1500,
				},
			},
			Payments: []backup.PaymentEntry{
				{ID: "p1", BookingID: "b1", Amount: 4500, Method: "cash"},
				{ID: "p2", BookingID: "b2", Amount: 1500, Method: "card"},
			},
			Settings: &backup.SettingsEntry{BusinessName: "Studio Lisboa", Currency: "EUR"},
		},
	}
}

func newTestSession(t *testing.T, snap *backup.Snapshot, live *model.Dataset) *backup.Session {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := backup.NewMockRepository(ctrl)
	repo.EXPECT().LoadDataset(gomock.Any()).Return(live, nil)

	sess, err := backup.NewService(repo, nil).Load(context.Background(), snap)
	require.NoError(t, err)

	return sess
}
