package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
	StatusClosed   Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ValidateTransition enforces that tickets only move away from open.
// Resolved and closed are reachable from each other in either order.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return &ValidationError{Fields: map[string]string{"status": fmt.Sprintf("unknown status %q", to)}}
	}
	if to == StatusOpen && from != StatusOpen {
		return &ValidationError{Fields: map[string]string{"status": "a " + string(from) + " ticket cannot be reopened"}}
	}
	return nil
}

// Ticket is the console's view of a backend ticket. CreatedAt and
// UpdatedAt are kept verbatim as the backend formats them.
type Ticket struct {
	ID                    ID       `json:"id"`
	CustomerName          string   `json:"customer_name"`
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	Status                Status   `json:"status"`
	CreatedAt             string   `json:"createdAt"`
	UpdatedAt             string   `json:"updatedAt,omitempty"`
	Category              string   `json:"category,omitempty"`
	Tags                  []string `json:"tags,omitempty"`
	RecommendedArticleIDs []ID     `json:"recommendedArticleIds"`
}

// Clone returns a deep copy so callers never share slices with the store.
func (t Ticket) Clone() Ticket {
	c := t
	if t.Tags != nil {
		c.Tags = append(make([]string, 0, len(t.Tags)), t.Tags...)
	}
	if t.RecommendedArticleIDs != nil {
		c.RecommendedArticleIDs = append(make([]ID, 0, len(t.RecommendedArticleIDs)), t.RecommendedArticleIDs...)
	}
	return c
}

func (t Ticket) HasRecommendations() bool { return len(t.RecommendedArticleIDs) > 0 }

// TicketDraft is a ticket the customer is still authoring.
type TicketDraft struct {
	CustomerName string `json:"customer_name"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

// Validate checks the draft locally. A failing draft is never sent to
// the backend.
func (d TicketDraft) Validate() error {
	fields := make(map[string]string)
	if utf8.RuneCountInString(strings.TrimSpace(d.CustomerName)) < 2 {
		fields["customer_name"] = "Name must be at least 2 characters"
	}
	if strings.TrimSpace(d.Title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(d.Description) == "" {
		fields["description"] = "Description is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// TicketPatch is the partial ticket a status update returns. Absent
// fields decode to nil and are left alone by Merge.
type TicketPatch struct {
	Status    *Status `json:"status"`
	UpdatedAt *string `json:"updatedAt"`
}

// Merge applies a status-update response to a local ticket.
//
// Field ownership after creation:
//
//	status                 server (taken from the patch when present)
//	updatedAt              server (taken from the patch when present)
//	id, customer_name,
//	title, description,
//	createdAt, category,
//	tags,
//	recommendedArticleIds  local (never touched by a status update)
//
// The backend may echo the full ticket; only the server-owned fields are
// read from it.
func (p TicketPatch) Merge(local Ticket) Ticket {
	merged := local.Clone()
	if p.Status != nil && p.Status.Valid() {
		merged.Status = *p.Status
	}
	if p.UpdatedAt != nil {
		merged.UpdatedAt = *p.UpdatedAt
	}
	return merged
}
