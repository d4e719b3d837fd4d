package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusDone       TicketStatus = "done"
	TicketStatusRejected   TicketStatus = "rejected"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusDone,
	TicketStatusRejected,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s.Rank() >= 0
}

// Rank is the declaration order, used when sorting by status.
func (s TicketStatus) Rank() int {
	for i, candidate := range TicketStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists priorities from least to most urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	return p.Rank() >= 0
}

// Rank is the declaration order, used when sorting by priority.
func (p TicketPriority) Rank() int {
	for i, candidate := range TicketPriorities {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Ticket is a reported maintenance issue tied to a room and a category.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Room        string
	Priority    TicketPriority
	Status      TicketStatus
	CategoryID  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Comments    []Comment
}
