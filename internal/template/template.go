package template

import "time"

// Template is a named, versioned notification template. Body, Title and
// Subject carry {{variable}} placeholders; Variables lists every placeholder
// the template references.
type Template struct {
	ID               int64     `json:"id"`
	Code             string    `json:"template_code"`
	Name             string    `json:"name"`
	NotificationType string    `json:"notification_type"`
	Language         string    `json:"language"`
	Version          int       `json:"version"`
	Subject          string    `json:"subject,omitempty"`
	Body             string    `json:"body"`
	Title            string    `json:"title,omitempty"`
	Variables        []string  `json:"variables"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateParams carries the fields for a new template.
type CreateParams struct {
	Code             string   `json:"template_code"`
	Name             string   `json:"name"`
	NotificationType string   `json:"notification_type"`
	Language         string   `json:"language"`
	Subject          string   `json:"subject"`
	Body             string   `json:"body"`
	Title            string   `json:"title"`
	Variables        []string `json:"variables"`
}

// UpdateParams carries optional field changes; nil means keep the current
// value. Any content change bumps the template version.
type UpdateParams struct {
	Name     *string `json:"name"`
	Subject  *string `json:"subject"`
	Body     *string `json:"body"`
	Title    *string `json:"title"`
	IsActive *bool   `json:"is_active"`
}

// Rendered is the outcome of substituting variables into a template.
type Rendered struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
	Title   string `json:"title,omitempty"`
}

// ListFilter narrows and pages template listings.
type ListFilter struct {
	Page             int
	Limit            int
	Language         string
	NotificationType string
}
