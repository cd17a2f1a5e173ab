package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"novelpress/internal/models"
	"novelpress/internal/store"
)

// Validation limits for novel form fields.
const (
	maxTitleLen = 255
	maxBodyLen  = 1_000_000
)

// FieldErrors maps form field names to human-readable validation messages.
// An empty map means the form passed validation.
type FieldErrors map[string]string

// novelForm holds the parsed novel form fields before validation.
type novelForm struct {
	Title      string
	Slug       string
	CategoryID uuid.UUID
	Body       string
	BodyFormat models.BodyFormat
}

// parseNovelForm extracts novel fields from the (multipart) form.
func parseNovelForm(r *http.Request) novelForm {
	f := novelForm{
		Title:      strings.TrimSpace(r.FormValue("title")),
		Slug:       strings.TrimSpace(r.FormValue("slug")),
		Body:       r.FormValue("body"),
		BodyFormat: models.BodyFormat(r.FormValue("body_format")),
	}
	if f.BodyFormat != models.BodyFormatMarkdown {
		f.BodyFormat = models.BodyFormatHTML
	}
	if id, err := uuid.Parse(r.FormValue("category_id")); err == nil {
		f.CategoryID = id
	}
	return f
}

// validateNovel checks all novel fields and collects every failure, not just
// the first one. currentSlug is the record's existing slug on update, so an
// unchanged slug does not collide with itself; pass "" on create.
func validateNovel(f novelForm, categories *store.CategoryStore, posts *store.PostStore, currentSlug string) (FieldErrors, error) {
	errs := FieldErrors{}

	if f.Title == "" {
		errs["title"] = "The title field is required."
	} else if utf8.RuneCountInString(f.Title) > maxTitleLen {
		errs["title"] = "The title may not be greater than 255 characters."
	}

	if f.Slug == "" {
		errs["slug"] = "The slug field is required."
	} else if f.Slug != currentSlug {
		taken, err := posts.SlugExists(f.Slug)
		if err != nil {
			return nil, err
		}
		if taken {
			errs["slug"] = "The slug has already been taken."
		}
	}

	if f.CategoryID == uuid.Nil {
		errs["category_id"] = "The category field is required."
	} else {
		cat, err := categories.FindByID(f.CategoryID)
		if err != nil {
			return nil, err
		}
		if cat == nil {
			errs["category_id"] = "The selected category is invalid."
		}
	}

	if strings.TrimSpace(f.Body) == "" {
		errs["body"] = "The body field is required."
	} else if utf8.RuneCountInString(f.Body) > maxBodyLen {
		errs["body"] = "The body may not be greater than 1,000,000 characters."
	}

	return errs, nil
}

// validateImageUpload sniffs the uploaded file's content and rejects
// anything that isn't an image. Detection uses the file contents, not the
// client-supplied Content-Type header. Returns the detected content type.
func validateImageUpload(file interface {
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
}) (string, string) {
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && n == 0 {
		return "", "The image could not be read."
	}
	if _, err := file.Seek(0, 0); err != nil {
		return "", "The image could not be read."
	}

	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		return "", "The image must be an image file."
	}
	return contentType, ""
}
