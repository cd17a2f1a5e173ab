package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"novelpress/internal/models"
)

// PostStore handles all novel database operations.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `p.id, p.title, p.slug, p.category_id, p.image, p.body, p.body_format,
       p.excerpt, p.user_id, p.created_at, p.updated_at, c.name`

// scanPost scans a joined posts/categories row into a Post struct.
func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Slug, &p.CategoryID, &p.Image, &p.Body, &p.BodyFormat,
		&p.Excerpt, &p.UserID, &p.CreatedAt, &p.UpdatedAt, &p.CategoryName,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByAuthor returns all novels owned by the given user, newest first.
func (s *PostStore) ListByAuthor(userID uuid.UUID) ([]models.Post, error) {
	rows, err := s.db.Query(`
		SELECT `+postColumns+`
		FROM posts p
		JOIN categories c ON c.id = p.category_id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// List returns all novels, newest first. Used by the public site.
func (s *PostStore) List() ([]models.Post, error) {
	rows, err := s.db.Query(`
		SELECT ` + postColumns + `
		FROM posts p
		JOIN categories c ON c.id = p.category_id
		ORDER BY p.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// collectPosts drains a result set of joined post rows.
func collectPosts(rows *sql.Rows) ([]models.Post, error) {
	var items []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// FindByID retrieves a novel by its UUID. Returns nil if not found.
func (s *PostStore) FindByID(id uuid.UUID) (*models.Post, error) {
	row := s.db.QueryRow(`
		SELECT `+postColumns+`
		FROM posts p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

// FindBySlug retrieves a novel by its slug. Returns nil if not found.
func (s *PostStore) FindBySlug(slug string) (*models.Post, error) {
	row := s.db.QueryRow(`
		SELECT `+postColumns+`
		FROM posts p
		JOIN categories c ON c.id = p.category_id
		WHERE p.slug = $1
	`, slug)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by slug: %w", err)
	}
	return p, nil
}

// SlugExists reports whether any novel already uses the given slug.
// Satisfies slug.Checker for collision-free slug generation.
func (s *PostStore) SlugExists(slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("slug exists: %w", err)
	}
	return exists, nil
}

// Create inserts a new novel and returns it with the generated ID.
func (s *PostStore) Create(p *models.Post) (*models.Post, error) {
	result := &models.Post{CategoryName: p.CategoryName}
	err := s.db.QueryRow(`
		INSERT INTO posts (title, slug, category_id, image, body, body_format, excerpt, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, title, slug, category_id, image, body, body_format,
		          excerpt, user_id, created_at, updated_at
	`, p.Title, p.Slug, p.CategoryID, p.Image, p.Body, p.BodyFormat, p.Excerpt, p.UserID,
	).Scan(
		&result.ID, &result.Title, &result.Slug, &result.CategoryID, &result.Image,
		&result.Body, &result.BodyFormat, &result.Excerpt, &result.UserID,
		&result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return result, nil
}

// Update modifies an existing novel by its identifier.
func (s *PostStore) Update(p *models.Post) error {
	_, err := s.db.Exec(`
		UPDATE posts SET
			title = $1, slug = $2, category_id = $3, image = $4, body = $5,
			body_format = $6, excerpt = $7, user_id = $8, updated_at = NOW()
		WHERE id = $9
	`, p.Title, p.Slug, p.CategoryID, p.Image, p.Body, p.BodyFormat, p.Excerpt, p.UserID, p.ID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// Delete removes a novel by ID.
func (s *PostStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}
