package models

import (
	"time"

	"github.com/google/uuid"
)

// BodyFormat indicates how a post body should be interpreted when rendering.
type BodyFormat string

const (
	// BodyFormatHTML is used by the rich-text editor (and legacy content).
	BodyFormatHTML BodyFormat = "html"
	// BodyFormatMarkdown is used by the Markdown editor.
	BodyFormatMarkdown BodyFormat = "markdown"
)

// IsMarkdown reports whether the body needs Markdown conversion before display.
func (f BodyFormat) IsMarkdown() bool {
	return f == BodyFormatMarkdown
}

// Post represents a single novel: the authored content item managed through
// the author dashboard and served on the public site.
type Post struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Slug       string     `json:"slug"`
	CategoryID uuid.UUID  `json:"category_id"`
	Image      *string    `json:"image,omitempty"` // object storage key of the cover; nil means no cover
	Body       string     `json:"body"`
	BodyFormat BodyFormat `json:"body_format"`
	Excerpt    string     `json:"excerpt"` // derived from Body on every write, never edited directly
	UserID     uuid.UUID  `json:"user_id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Virtual field populated by store methods that join categories.
	CategoryName string `json:"category_name,omitempty"`
}

// HasImage returns true if the post has a stored cover image.
func (p *Post) HasImage() bool {
	return p.Image != nil && *p.Image != ""
}
