// Package handlers contains the HTTP handlers for NovelPress.
// Handlers are grouped by concern (novels, auth, public) and receive
// their dependencies through the handler struct.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"novelpress/internal/cache"
	"novelpress/internal/markup"
	"novelpress/internal/middleware"
	"novelpress/internal/models"
	"novelpress/internal/render"
	"novelpress/internal/session"
	"novelpress/internal/slug"
	"novelpress/internal/store"
)

// excerptLimit is the number of characters kept from the stripped body
// when deriving a novel's excerpt.
const excerptLimit = 100

// MaxUploadBytes caps the request body on dashboard form routes. The method
// override middleware applies it before any form parsing happens.
const MaxUploadBytes = 10 << 20 // 10 MiB

// FileStore is the slice of the storage client the handlers use for cover
// images. *storage.Client satisfies it.
type FileStore interface {
	StoreImage(ctx context.Context, ext, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	FileURL(key string) string
}

// Novels groups the author dashboard handlers for managing novels.
type Novels struct {
	renderer      *render.Renderer
	sessions      *session.Store
	postStore     *store.PostStore
	categoryStore *store.CategoryStore
	storageClient FileStore
	pageCache     *cache.PageCache
}

// NewNovels creates the dashboard handler group. storageClient may be nil
// if S3 is not configured; image uploads are then skipped.
func NewNovels(renderer *render.Renderer, sessions *session.Store, postStore *store.PostStore, categoryStore *store.CategoryStore, storageClient FileStore, pageCache *cache.PageCache) *Novels {
	return &Novels{
		renderer:      renderer,
		sessions:      sessions,
		postStore:     postStore,
		categoryStore: categoryStore,
		storageClient: storageClient,
		pageCache:     pageCache,
	}
}

// List renders the signed-in author's novels, newest first.
func (n *Novels) List(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	novels, err := n.postStore.ListByAuthor(sess.UserID)
	if err != nil {
		slog.Error("list novels failed", "error", err, "user_id", sess.UserID)
	}

	n.renderer.Page(w, r, "novels_list", &render.PageData{
		Title:   "My Novels",
		Section: "novels",
		Data:    map[string]any{"Novels": novels},
	})
}

// New renders the blank novel form.
func (n *Novels) New(w http.ResponseWriter, r *http.Request) {
	categories, err := n.categoryStore.List()
	if err != nil {
		slog.Error("list categories failed", "error", err)
	}

	n.renderer.Page(w, r, "novel_form", &render.PageData{
		Title:   "New Novel",
		Section: "novels",
		Data: map[string]any{
			"Novel":      &models.Post{},
			"Categories": categories,
			"Errors":     FieldErrors{},
			"Action":     "/dashboard/post",
			"IsEdit":     false,
		},
	})
}

// Create handles the new novel form submission. All validation runs before
// any file or database write happens.
func (n *Novels) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := parseNovelForm(r)

	fieldErrs, err := validateNovel(form, n.categoryStore, n.postStore, "")
	if err != nil {
		slog.Error("novel validation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	file, header, contentType := n.openImageUpload(r, fieldErrs)

	if len(fieldErrs) > 0 {
		if file != nil {
			file.Close()
		}
		n.renderForm(w, r, form, fieldErrs, nil)
		return
	}

	post := &models.Post{
		Title:      form.Title,
		Slug:       form.Slug,
		CategoryID: form.CategoryID,
		Body:       form.Body,
		BodyFormat: form.BodyFormat,
		Excerpt:    markup.Excerpt(form.Body, excerptLimit),
		UserID:     sess.UserID,
	}

	if file != nil {
		defer file.Close()
		key, err := n.storageClient.StoreImage(r.Context(), imageExt(header.Filename, contentType), contentType, file, header.Size)
		if err != nil {
			slog.Error("store image failed", "error", err)
			fieldErrs["image"] = "The image could not be stored."
			n.renderForm(w, r, form, fieldErrs, nil)
			return
		}
		post.Image = &key
	}

	created, err := n.postStore.Create(post)
	if err != nil {
		slog.Error("create novel failed", "error", err, "slug", post.Slug)
		fieldErrs["slug"] = "The slug has already been taken."
		n.renderForm(w, r, form, fieldErrs, nil)
		return
	}

	n.pageCache.InvalidateNovel(r.Context(), created.Slug)
	n.sessions.AddFlash(r.Context(), r, session.Flash{Type: "success", Message: "Successfully Add New Novel"})
	http.Redirect(w, r, "/dashboard/post", http.StatusSeeOther)
}

// Show renders a single novel's detail page in the dashboard.
func (n *Novels) Show(w http.ResponseWriter, r *http.Request) {
	post, ok := n.findByParam(w, r)
	if !ok {
		return
	}

	bodyHTML, err := n.bodyHTML(post)
	if err != nil {
		slog.Error("render novel body failed", "error", err, "id", post.ID)
	}

	n.renderer.Page(w, r, "novel_show", &render.PageData{
		Title:   post.Title,
		Section: "novels",
		Data: map[string]any{
			"Novel":    post,
			"BodyHTML": bodyHTML,
			"ImageURL": n.imageURL(post),
		},
	})
}

// Edit renders the edit form pre-filled with the novel's current values.
func (n *Novels) Edit(w http.ResponseWriter, r *http.Request) {
	post, ok := n.findByParam(w, r)
	if !ok {
		return
	}

	categories, err := n.categoryStore.List()
	if err != nil {
		slog.Error("list categories failed", "error", err)
	}

	n.renderer.Page(w, r, "novel_form", &render.PageData{
		Title:   "Edit Novel",
		Section: "novels",
		Data: map[string]any{
			"Novel":      post,
			"Categories": categories,
			"Errors":     FieldErrors{},
			"Action":     "/dashboard/post/" + post.ID.String(),
			"IsEdit":     true,
			"ImageURL":   n.imageURL(post),
		},
	})
}

// Update handles the edit form submission. The slug uniqueness check exempts
// the record's own slug, so saving without renaming never fails. A new cover
// image replaces the old one: the old file is deleted before the new key is
// stored.
func (n *Novels) Update(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	post, ok := n.findByParam(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := parseNovelForm(r)

	fieldErrs, err := validateNovel(form, n.categoryStore, n.postStore, post.Slug)
	if err != nil {
		slog.Error("novel validation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	file, header, contentType := n.openImageUpload(r, fieldErrs)

	if len(fieldErrs) > 0 {
		if file != nil {
			file.Close()
		}
		n.renderEditForm(w, r, post, form, fieldErrs)
		return
	}

	oldSlug := post.Slug

	if file != nil {
		defer file.Close()

		// Remove the previous cover before storing the replacement. The two
		// operations are not atomic; a failed delete is logged and the new
		// image still replaces the key.
		if post.HasImage() {
			if err := n.storageClient.Delete(r.Context(), *post.Image); err != nil {
				slog.Error("delete old cover failed", "error", err, "key", *post.Image)
			}
		}

		key, err := n.storageClient.StoreImage(r.Context(), imageExt(header.Filename, contentType), contentType, file, header.Size)
		if err != nil {
			slog.Error("store image failed", "error", err)
			fieldErrs["image"] = "The image could not be stored."
			n.renderEditForm(w, r, post, form, fieldErrs)
			return
		}
		post.Image = &key
	}

	post.Title = form.Title
	post.Slug = form.Slug
	post.CategoryID = form.CategoryID
	post.Body = form.Body
	post.BodyFormat = form.BodyFormat
	post.Excerpt = markup.Excerpt(form.Body, excerptLimit)
	// Ownership always follows the submitting session, never the form.
	post.UserID = sess.UserID

	if err := n.postStore.Update(post); err != nil {
		slog.Error("update novel failed", "error", err, "id", post.ID)
		fieldErrs["slug"] = "The slug has already been taken."
		n.renderEditForm(w, r, post, form, fieldErrs)
		return
	}

	n.pageCache.InvalidateNovel(r.Context(), oldSlug)
	if post.Slug != oldSlug {
		n.pageCache.InvalidateNovel(r.Context(), post.Slug)
	}
	n.sessions.AddFlash(r.Context(), r, session.Flash{Type: "success", Message: "Successfully Update Novel"})
	http.Redirect(w, r, "/dashboard/post", http.StatusSeeOther)
}

// Delete removes a novel. The stored cover file is deleted first, then the
// database record; a file deletion failure is logged and does not keep the
// record alive.
func (n *Novels) Delete(w http.ResponseWriter, r *http.Request) {
	post, ok := n.findByParam(w, r)
	if !ok {
		return
	}

	if post.HasImage() && n.storageClient != nil {
		if err := n.storageClient.Delete(r.Context(), *post.Image); err != nil {
			slog.Error("delete cover failed", "error", err, "key", *post.Image)
		}
	}

	if err := n.postStore.Delete(post.ID); err != nil {
		slog.Error("delete novel failed", "error", err, "id", post.ID)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	n.pageCache.InvalidateNovel(r.Context(), post.Slug)
	n.sessions.AddFlash(r.Context(), r, session.Flash{Type: "success", Message: "Novel Deleted"})
	http.Redirect(w, r, "/dashboard/post", http.StatusSeeOther)
}

// CheckSlug generates a unique slug candidate from a title. Used by the
// form's live slug preview. Responds with {"slug": "..."}.
func (n *Novels) CheckSlug(w http.ResponseWriter, r *http.Request) {
	title := r.FormValue("title")

	candidate, err := slug.Unique(n.postStore, title)
	if err != nil {
		slog.Error("slug generation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"slug": candidate})
}

// findByParam parses the id route parameter and loads the novel, writing
// the error response itself when the id is malformed or unknown.
func (n *Novels) findByParam(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return nil, false
	}

	post, err := n.postStore.FindByID(id)
	if err != nil {
		slog.Error("find novel failed", "error", err, "id", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	if post == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return nil, false
	}

	return post, true
}

// openImageUpload opens and sniffs the optional cover upload. A validation
// failure is recorded in fieldErrs and (nil, nil, "") is returned. The
// caller owns closing the returned file.
func (n *Novels) openImageUpload(r *http.Request, fieldErrs FieldErrors) (multipart.File, *multipart.FileHeader, string) {
	file, header, err := r.FormFile("image")
	if err != nil {
		// No file submitted.
		return nil, nil, ""
	}

	if n.storageClient == nil {
		file.Close()
		fieldErrs["image"] = "Image uploads are not configured."
		return nil, nil, ""
	}

	contentType, msg := validateImageUpload(file)
	if msg != "" {
		file.Close()
		fieldErrs["image"] = msg
		return nil, nil, ""
	}

	return file, header, contentType
}

// renderForm re-renders the create form with submitted values and errors.
func (n *Novels) renderForm(w http.ResponseWriter, r *http.Request, form novelForm, fieldErrs FieldErrors, post *models.Post) {
	categories, err := n.categoryStore.List()
	if err != nil {
		slog.Error("list categories failed", "error", err)
	}

	if post == nil {
		post = &models.Post{}
	}
	post.Title = form.Title
	post.Slug = form.Slug
	post.CategoryID = form.CategoryID
	post.Body = form.Body
	post.BodyFormat = form.BodyFormat

	n.renderer.Page(w, r, "novel_form", &render.PageData{
		Title:   "New Novel",
		Section: "novels",
		Data: map[string]any{
			"Novel":      post,
			"Categories": categories,
			"Errors":     fieldErrs,
			"Action":     "/dashboard/post",
			"IsEdit":     false,
		},
	})
}

// renderEditForm re-renders the edit form with submitted values and errors.
func (n *Novels) renderEditForm(w http.ResponseWriter, r *http.Request, post *models.Post, form novelForm, fieldErrs FieldErrors) {
	categories, err := n.categoryStore.List()
	if err != nil {
		slog.Error("list categories failed", "error", err)
	}

	display := *post
	display.Title = form.Title
	display.Slug = form.Slug
	display.CategoryID = form.CategoryID
	display.Body = form.Body
	display.BodyFormat = form.BodyFormat

	n.renderer.Page(w, r, "novel_form", &render.PageData{
		Title:   "Edit Novel",
		Section: "novels",
		Data: map[string]any{
			"Novel":      &display,
			"Categories": categories,
			"Errors":     fieldErrs,
			"Action":     "/dashboard/post/" + post.ID.String(),
			"IsEdit":     true,
			"ImageURL":   n.imageURL(post),
		},
	})
}

// bodyHTML converts a novel body to display HTML based on its format.
func (n *Novels) bodyHTML(post *models.Post) (string, error) {
	if post.BodyFormat.IsMarkdown() {
		return markup.ToHTML(post.Body)
	}
	return post.Body, nil
}

// imageURL resolves the public URL for a novel's cover, or "" if none.
func (n *Novels) imageURL(post *models.Post) string {
	if !post.HasImage() || n.storageClient == nil {
		return ""
	}
	return n.storageClient.FileURL(*post.Image)
}

// imageExt picks a file extension for a stored cover, preferring the
// uploaded filename and falling back to the sniffed content type.
func imageExt(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
