package backup_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jpcaldeira/reserva/internal/backup"
)

func TestService_OpenInvalidDocument(t *testing.T) {
	type testCase struct {
		name  string
		input string
	}

	tests := []testCase{
		{name: "NotJSON", input: "definitely not json"},
		{name: "MissingVersion", input: `{"data":{"clients":[]}}`},
		{name: "VersionZero", input: `{"version":0,"data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := backup.NewMockRepository(ctrl)
			// The repository must never be touched for an invalid file.
			svc := backup.NewService(repo, nil)

			_, err := svc.Open(context.Background(), bytes.NewReader([]byte(tt.input)))
			require.ErrorIs(t, err, backup.ErrInvalidSnapshot)
		})
	}
}

func TestService_Open(t *testing.T) {
	raw, err := json.Marshal(fixtureSnapshot())
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	repo := backup.NewMockRepository(ctrl)
	repo.EXPECT().LoadDataset(gomock.Any()).Return(fixtureLive(), nil)

	svc := backup.NewService(repo, nil)

	sess, err := svc.Open(context.Background(), bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, backup.SnapshotVersion, sess.Snapshot().Version)
	assert.Equal(t, 2, sess.Data().Len(backup.ClassClient))

	mask := sess.Mask()
	assert.True(t, mask.Duplicate(backup.RecordRef{Class: backup.ClassClient, Index: 1}))
	assert.False(t, mask.Duplicate(backup.RecordRef{Class: backup.ClassClient, Index: 0}))
}

func TestService_LoadRepositoryError(t *testing.T) {
	wantErr := errors.New("connection refused")

	ctrl := gomock.NewController(t)
	repo := backup.NewMockRepository(ctrl)
	repo.EXPECT().LoadDataset(gomock.Any()).Return(nil, wantErr)

	svc := backup.NewService(repo, nil)

	_, err := svc.Load(context.Background(), fixtureSnapshot())
	require.ErrorIs(t, err, wantErr)
}

func TestService_Import(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := backup.NewMockRepository(ctrl)
	repo.EXPECT().LoadDataset(gomock.Any()).Return(fixtureLive(), nil)

	exec := backup.NewMockExecutor(ctrl)

	svc := backup.NewService(repo, exec)

	sess, err := svc.Load(context.Background(), fixtureSnapshot())
	require.NoError(t, err)

	_, err = sess.Apply(backup.Action{Op: backup.OpSelect, Class: backup.ClassBooking, Index: 0})
	require.NoError(t, err)

	want := &backup.Stats{Written: map[backup.Class]int{
		backup.ClassClient:  1,
		backup.ClassService: 1,
		backup.ClassBooking: 1,
		backup.ClassPayment: 1,
	}}

	var got *backup.Payload

	exec.EXPECT().
		Import(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *backup.Payload) (*backup.Stats, error) {
			got = p
			return want, nil
		})

	stats, err := svc.Import(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, want, stats)

	require.NotNil(t, got)
	assert.Equal(t, []int{0}, got.ImportFlags.Bookings)
	assert.Equal(t, []int{0}, got.ImportFlags.Payments)
}

func TestService_ImportExecutorError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := backup.NewMockRepository(ctrl)
	repo.EXPECT().LoadDataset(gomock.Any()).Return(fixtureLive(), nil)

	wantErr := errors.New("deadlock detected")
	exec := backup.NewMockExecutor(ctrl)
	exec.EXPECT().Import(gomock.Any(), gomock.Any()).Return(nil, wantErr)

	svc := backup.NewService(repo, exec)

	sess, err := svc.Load(context.Background(), fixtureSnapshot())
	require.NoError(t, err)

	_, err = svc.Import(context.Background(), sess)
	require.ErrorIs(t, err, wantErr)
}

func TestService_Export(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := backup.NewMockRepository(ctrl)
	repo.EXPECT().LoadDataset(gomock.Any()).Return(fixtureLive(), nil)

	svc := backup.NewService(repo, nil)

	snap, err := svc.Export(context.Background())
	require.NoError(t, err)

	assert.Equal(t, backup.SnapshotVersion, snap.Version)
	assert.NotEmpty(t, snap.ExportedAt)
	assert.Len(t, snap.Data.Clients, 1)
	assert.Len(t, snap.Data.Services, 1)
	assert.Len(t, snap.Data.Bookings, 1)
	assert.Equal(t, "2025-05-10", snap.Data.Bookings[0].Date)
}

func TestService_ExportRoundTripsThroughDecode(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := backup.NewMockRepository(ctrl)
	repo.EXPECT().LoadDataset(gomock.Any()).Return(fixtureLive(), nil)

	svc := backup.NewService(repo, nil)

	snap, err := svc.Export(context.Background())
	require.NoError(t, err)

	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	decoded, err := backup.DecodeSnapshot(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, snap, decoded)
}
