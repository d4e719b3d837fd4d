package domain

// allowedTransitions is the complete status lifecycle. Terminal states map to an empty set.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusRejected},
	TicketStatusInProgress: {TicketStatusDone, TicketStatusRejected},
	TicketStatusDone:       {},
	TicketStatusRejected:   {},
}

// CanTransition reports whether a ticket in current may move to target.
func CanTransition(current, target TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == target {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from current in one step.
func NextStatuses(current TicketStatus) []TicketStatus {
	next := allowedTransitions[current]
	out := make([]TicketStatus, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s TicketStatus) bool {
	return len(allowedTransitions[s]) == 0
}

// CanChangeStatus reports whether role may invoke a status transition at all.
func CanChangeStatus(role Role) bool {
	return role == RoleTechnician
}

// CanEditFields reports whether role may edit a ticket's mutable fields in status.
// Students are limited to open tickets; technicians are not restricted.
func CanEditFields(role Role, status TicketStatus) bool {
	switch role {
	case RoleTechnician:
		return true
	case RoleStudent:
		return status == TicketStatusOpen
	default:
		return false
	}
}
