package domain

import "time"

// Category classifies the kind of issue a ticket reports. Categories are deactivated, never removed.
type Category struct {
	ID          int64
	Name        string
	Description *string
	IsActive    bool
	CreatedAt   time.Time
}
