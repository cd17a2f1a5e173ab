package models

import (
	"time"

	"github.com/google/uuid"
)

// Category represents a novel genre/category. Every post belongs to exactly
// one category. Categories are read-only from the author dashboard; they are
// managed by seeding or database administration.
type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
