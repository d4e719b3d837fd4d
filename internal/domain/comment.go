package domain

import "time"

// Comment is an immutable message in a ticket thread.
type Comment struct {
	ID         int64
	TicketID   int64
	Message    string
	AuthorRole Role
	CreatedAt  time.Time
}
