package dto

import (
	"time"

	"github.com/spec-kit/dorm-maintenance/internal/domain"
	"github.com/spec-kit/dorm-maintenance/internal/service"
	"github.com/spec-kit/dorm-maintenance/pkg/util/optional"
	"github.com/spec-kit/dorm-maintenance/pkg/util/validate"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title" validate:"required,min=5,max=200"`
	Description string                `json:"description" validate:"required,min=10,max=2000"`
	Room        string                `json:"room" validate:"required,room"`
	Priority    domain.TicketPriority `json:"priority" validate:"required,oneof=low medium high urgent"`
	CategoryID  int64                 `json:"category_id" validate:"required,gt=0"`
}

// Validate checks field constraints.
func (r CreateTicketRequest) Validate() error {
	return validate.Struct(r)
}

// ToInput converts the payload for the service layer.
func (r CreateTicketRequest) ToInput() service.TicketCreateInput {
	return service.TicketCreateInput{
		Title:       r.Title,
		Description: r.Description,
		Room:        r.Room,
		Priority:    r.Priority,
		CategoryID:  r.CategoryID,
	}
}

// UpdateTicketRequest payload. Absent fields are left untouched; null is rejected.
type UpdateTicketRequest struct {
	Title       optional.Value[string]                `json:"title"`
	Description optional.Value[string]                `json:"description"`
	Room        optional.Value[string]                `json:"room"`
	Priority    optional.Value[domain.TicketPriority] `json:"priority"`
	CategoryID  optional.Value[int64]                 `json:"category_id"`
}

// Validate checks the fields that were supplied.
func (r UpdateTicketRequest) Validate() error {
	var f validate.Fields
	checkOptional(&f, "title", r.Title, "min=5,max=200")
	checkOptional(&f, "description", r.Description, "min=10,max=2000")
	checkOptional(&f, "room", r.Room, "room")
	if r.Priority.Set {
		if r.Priority.Null {
			f.Fail("priority", "priority may not be null")
		} else {
			f.Check("priority", string(r.Priority.Value), "oneof=low medium high urgent")
		}
	}
	if r.CategoryID.Set {
		if r.CategoryID.Null {
			f.Fail("category_id", "category_id may not be null")
		} else {
			f.Check("category_id", r.CategoryID.Value, "gt=0")
		}
	}
	return f.Err()
}

func checkOptional(f *validate.Fields, field string, v optional.Value[string], tag string) {
	if !v.Set {
		return
	}
	if v.Null {
		f.Fail(field, field+" may not be null")
		return
	}
	f.Check(field, v.Value, tag)
}

// ToInput converts the payload for the service layer.
func (r UpdateTicketRequest) ToInput() service.TicketUpdateInput {
	return service.TicketUpdateInput{
		Title:       r.Title,
		Description: r.Description,
		Room:        r.Room,
		Priority:    r.Priority,
		CategoryID:  r.CategoryID,
	}
}

// StatusUpdateRequest payload.
type StatusUpdateRequest struct {
	Status domain.TicketStatus `json:"status" validate:"required,oneof=open in_progress done rejected"`
}

// Validate checks field constraints.
func (r StatusUpdateRequest) Validate() error {
	return validate.Struct(r)
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Message string `json:"message" validate:"required,min=1,max=1000"`
}

// Validate checks field constraints.
func (r CreateCommentRequest) Validate() error {
	return validate.Struct(r)
}

// TicketListQuery captures the list query string.
type TicketListQuery struct {
	Status     *string `query:"status" validate:"omitempty,oneof=open in_progress done rejected"`
	Priority   *string `query:"priority" validate:"omitempty,oneof=low medium high urgent"`
	CategoryID *int64  `query:"category_id"`
	Room       *string `query:"room"`
	SortBy     string  `query:"sort_by"`
	SortOrder  string  `query:"sort_order" validate:"oneof=asc desc"`
	Skip       int     `query:"skip" validate:"gte=0"`
	Limit      int     `query:"limit" validate:"gte=1,lte=100"`
}

// NewTicketListQuery returns the query defaults applied before parsing.
func NewTicketListQuery() TicketListQuery {
	defaults := service.NewTicketListQuery()
	return TicketListQuery{
		SortBy:    defaults.SortBy,
		SortOrder: defaults.SortOrder,
		Skip:      defaults.Skip,
		Limit:     defaults.Limit,
	}
}

// Validate checks paging and enum filters. The sort key is checked by the service.
func (q TicketListQuery) Validate() error {
	return validate.Struct(q)
}

// ToQuery converts the parsed query for the service layer.
func (q TicketListQuery) ToQuery() service.TicketListQuery {
	out := service.TicketListQuery{
		CategoryID: q.CategoryID,
		Room:       q.Room,
		SortBy:     q.SortBy,
		SortOrder:  q.SortOrder,
		Skip:       q.Skip,
		Limit:      q.Limit,
	}
	if q.Status != nil {
		status := domain.TicketStatus(*q.Status)
		out.Status = &status
	}
	if q.Priority != nil {
		priority := domain.TicketPriority(*q.Priority)
		out.Priority = &priority
	}
	return out
}

// TicketResponse representation, always carrying the comment list.
type TicketResponse struct {
	ID          int64                 `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Room        string                `json:"room"`
	Priority    domain.TicketPriority `json:"priority"`
	CategoryID  int64                 `json:"category_id"`
	Status      domain.TicketStatus   `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Comments    []CommentResponse     `json:"comments"`
}

// CommentResponse representation.
type CommentResponse struct {
	ID         int64       `json:"id"`
	Message    string      `json:"message"`
	AuthorRole domain.Role `json:"author_role"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	comments := make([]CommentResponse, 0, len(t.Comments))
	for i := range t.Comments {
		comments = append(comments, NewCommentResponse(&t.Comments[i]))
	}
	return TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Room:        t.Room,
		Priority:    t.Priority,
		CategoryID:  t.CategoryID,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Comments:    comments,
	}
}

// NewTicketResponses maps a list, never returning nil.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		Message:    c.Message,
		AuthorRole: c.AuthorRole,
		CreatedAt:  c.CreatedAt,
	}
}
