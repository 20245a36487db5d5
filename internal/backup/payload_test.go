package backup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcaldeira/reserva/internal/backup"
)

func TestSession_PayloadAlwaysCarriesClientsAndServices(t *testing.T) {
	sess := newTestSession(t, fixtureSnapshot(), fixtureLive())

	_, err := sess.Apply(backup.Action{Op: backup.OpSelect, Class: backup.ClassBooking, Index: 0})
	require.NoError(t, err)

	p := sess.Payload()

	// Full sequences travel for reference resolution; flags say which of
	// them are authoritative.
	assert.Len(t, p.Data.Clients, 2)
	assert.Len(t, p.Data.Services, 2)
	assert.Equal(t, []int{0}, p.ImportFlags.Clients)
	assert.Equal(t, []int{1}, p.ImportFlags.Services)
}

func TestSession_PayloadDerivesPayments(t *testing.T) {
	sess := newTestSession(t, fixtureSnapshot(), fixtureLive())

	_, err := sess.Apply(backup.Action{Op: backup.OpSelect, Class: backup.ClassBooking, Index: 0})
	require.NoError(t, err)

	p := sess.Payload()

	require.Len(t, p.Data.Bookings, 1)
	assert.Equal(t, "b1", p.Data.Bookings[0].ID)

	require.Len(t, p.Data.Payments, 1)
	assert.Equal(t, "p1", p.Data.Payments[0].ID)
	assert.Equal(t, []int{0}, p.ImportFlags.Payments)
	assert.True(t, p.Selection[backup.ClassPayment])
}

func TestSession_PayloadNoBookingsNoPayments(t *testing.T) {
	sess := newTestSession(t, fixtureSnapshot(), fixtureLive())

	_, err := sess.Apply(backup.Action{Op: backup.OpSelect, Class: backup.ClassClient, Index: 0})
	require.NoError(t, err)

	p := sess.Payload()

	assert.Empty(t, p.Data.Payments)
	assert.Empty(t, p.ImportFlags.Payments)
	assert.False(t, p.Selection[backup.ClassPayment])
	assert.True(t, p.Selection[backup.ClassClient])
	assert.False(t, p.Selection[backup.ClassBooking])
}

func TestSession_PayloadExcludesUnselectedExpenses(t *testing.T) {
	sess := newTestSession(t, fixtureSnapshot(), fixtureLive())

	p := sess.Payload()
	assert.Empty(t, p.Data.Expenses)
	assert.Empty(t, p.Data.Categories)

	_, err := sess.Apply(backup.Action{Op: backup.OpSelect, Class: backup.ClassExpense, Index: 0})
	require.NoError(t, err)

	p = sess.Payload()
	require.Len(t, p.Data.Expenses, 1)
	require.Len(t, p.Data.Categories, 1)
	assert.Equal(t, "Rent", p.Data.Categories[0].Name)
}

func TestSession_PayloadSettings(t *testing.T) {
	sess := newTestSession(t, fixtureSnapshot(), fixtureLive())

	p := sess.Payload()
	assert.Nil(t, p.Data.Settings)
	assert.False(t, p.ImportFlags.Settings)

	sess.SetIncludeSettings(true)

	p = sess.Payload()
	require.NotNil(t, p.Data.Settings)
	assert.Equal(t, "Studio Lisboa", p.Data.Settings.BusinessName)
	assert.True(t, p.ImportFlags.Settings)
}

func TestSession_PayloadCarriesSnapshotHeader(t *testing.T) {
	snap := fixtureSnapshot()
	sess := newTestSession(t, snap, fixtureLive())

	p := sess.Payload()
	assert.Equal(t, snap.Version, p.Version)
	assert.Equal(t, snap.ExportedAt, p.ExportedAt)
}

// Duplicate records can never be flagged for writing: the selection reducer
// refuses them, so the flags of any reachable payload exclude them.
func TestSession_PayloadFlagsExcludeDuplicates(t *testing.T) {
	sess := newTestSession(t, fixtureSnapshot(), fixtureLive())

	for _, class := range backup.Classes {
		if !class.Selectable() {
			continue
		}

		_, err := sess.Apply(backup.Action{Op: backup.OpSelectAll, Class: class})
		require.NoError(t, err)
	}

	p := sess.Payload()

	assert.Equal(t, []int{0}, p.ImportFlags.Clients)
	assert.Equal(t, []int{1}, p.ImportFlags.Services)
	assert.Equal(t, []int{0}, p.ImportFlags.Categories)
	assert.Equal(t, []int{0}, p.ImportFlags.Expenses)
	assert.Equal(t, []int{0}, p.ImportFlags.Bookings)
	assert.Equal(t, []int{0}, p.ImportFlags.Payments)
}
