package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition_FullMatrix(t *testing.T) {
	allowed := map[TicketStatus]map[TicketStatus]bool{
		TicketStatusOpen:       {TicketStatusInProgress: true, TicketStatusRejected: true},
		TicketStatusInProgress: {TicketStatusDone: true, TicketStatusRejected: true},
		TicketStatusDone:       {},
		TicketStatusRejected:   {},
	}

	for _, from := range TicketStatuses {
		for _, to := range TicketStatuses {
			assert.Equal(t, allowed[from][to], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(TicketStatusOpen))
	assert.False(t, IsTerminal(TicketStatusInProgress))
	assert.True(t, IsTerminal(TicketStatusDone))
	assert.True(t, IsTerminal(TicketStatusRejected))
}

func TestNextStatuses_ReturnsCopy(t *testing.T) {
	next := NextStatuses(TicketStatusOpen)
	require.Len(t, next, 2)
	next[0] = TicketStatusDone

	assert.Equal(t, []TicketStatus{TicketStatusInProgress, TicketStatusRejected}, NextStatuses(TicketStatusOpen))
	assert.Empty(t, NextStatuses(TicketStatusDone))
}

func TestCanChangeStatus(t *testing.T) {
	assert.True(t, CanChangeStatus(RoleTechnician))
	assert.False(t, CanChangeStatus(RoleStudent))
	assert.False(t, CanChangeStatus(Role("")))
}

func TestCanEditFields(t *testing.T) {
	for _, status := range TicketStatuses {
		assert.True(t, CanEditFields(RoleTechnician, status), "technician in %s", status)
		assert.Equal(t, status == TicketStatusOpen, CanEditFields(RoleStudent, status), "student in %s", status)
		assert.False(t, CanEditFields(Role("admin"), status))
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"student":        RoleStudent,
		"  Technician ":  RoleTechnician,
		"STUDENT":        RoleStudent,
		"\ttechnician\n": RoleTechnician,
	}
	for raw, want := range cases {
		got, err := ParseRole(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	for _, raw := range []string{"", "   ", "admin", "tech"} {
		_, err := ParseRole(raw)
		assert.ErrorIs(t, err, ErrUnknownRole, raw)
	}
}

func TestEnumRanks(t *testing.T) {
	assert.Less(t, TicketPriorityLow.Rank(), TicketPriorityMedium.Rank())
	assert.Less(t, TicketPriorityHigh.Rank(), TicketPriorityUrgent.Rank())
	assert.False(t, TicketPriority("critical").Valid())
	assert.Less(t, TicketStatusOpen.Rank(), TicketStatusRejected.Rank())
	assert.False(t, TicketStatus("closed").Valid())
}
