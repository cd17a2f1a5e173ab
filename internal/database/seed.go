package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// starterCategories are created on first run so the novel form has genres
// to choose from. Categories are not editable from the dashboard.
var starterCategories = []struct {
	Name string
	Slug string
}{
	{"Fantasy", "fantasy"},
	{"Romance", "romance"},
	{"Mystery", "mystery"},
	{"Science Fiction", "science-fiction"},
	{"Slice of Life", "slice-of-life"},
}

// Seed populates the database with initial development data: a default
// author account and the starter genre categories. It is a no-op when
// users already exist.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("author"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	// Default author. 2FA is not enabled; they must set it up on first login.
	_, err = db.Exec(`
		INSERT INTO users (email, password_hash, pen_name, totp_enabled)
		VALUES ($1, $2, $3, $4)
	`, "author@novelpress.local", string(hash), "First Author", false)
	if err != nil {
		return fmt.Errorf("seed insert author: %w", err)
	}

	for _, c := range starterCategories {
		_, err := db.Exec(`
			INSERT INTO categories (name, slug)
			VALUES ($1, $2)
			ON CONFLICT (slug) DO NOTHING
		`, c.Name, c.Slug)
		if err != nil {
			return fmt.Errorf("seed category %q: %w", c.Slug, err)
		}
	}

	slog.Info("database seeded with default author and categories",
		"email", "author@novelpress.local",
		"password", "author",
	)

	return nil
}
