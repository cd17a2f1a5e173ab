package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"novelpress/internal/cache"
	"novelpress/internal/markup"
	"novelpress/internal/models"
	"novelpress/internal/render"
	"novelpress/internal/store"
)

// Public groups handlers for the public-facing site. Rendered pages are
// stored in the Valkey page cache and served from it until a dashboard
// write invalidates them.
type Public struct {
	renderer      *render.Renderer
	postStore     *store.PostStore
	storageClient FileStore
	pageCache     *cache.PageCache
}

// NewPublic creates a new Public handler group. storageClient may be nil
// if S3 is not configured.
func NewPublic(renderer *render.Renderer, postStore *store.PostStore, storageClient FileStore, pageCache *cache.PageCache) *Public {
	return &Public{
		renderer:      renderer,
		postStore:     postStore,
		storageClient: storageClient,
		pageCache:     pageCache,
	}
}

// Homepage lists all published novels, newest first.
func (p *Public) Homepage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cached, ok := p.pageCache.Get(ctx, cache.HomepageKey()); ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(cached)
		return
	}

	novels, err := p.postStore.List()
	if err != nil {
		slog.Error("list novels failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rendered, err := p.renderer.Render("home", &render.PageData{
		Title: "NovelPress",
		Data:  map[string]any{"Novels": novels},
	})
	if err != nil {
		slog.Error("render homepage failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	p.pageCache.Set(ctx, cache.HomepageKey(), rendered)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(rendered)
}

// Novel renders a single novel by its slug.
func (p *Public) Novel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slugParam := chi.URLParam(r, "slug")

	if cached, ok := p.pageCache.Get(ctx, cache.SlugKey(slugParam)); ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(cached)
		return
	}

	post, err := p.postStore.FindBySlug(slugParam)
	if err != nil {
		slog.Error("find novel by slug failed", "error", err, "slug", slugParam)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if post == nil {
		http.NotFound(w, r)
		return
	}

	bodyHTML := post.Body
	if post.BodyFormat.IsMarkdown() {
		bodyHTML, err = markup.ToHTML(post.Body)
		if err != nil {
			slog.Error("render novel body failed", "error", err, "slug", slugParam)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	rendered, err := p.renderer.Render("novel", &render.PageData{
		Title: post.Title,
		Data: map[string]any{
			"Novel":    post,
			"BodyHTML": bodyHTML,
			"ImageURL": p.imageURL(post),
		},
	})
	if err != nil {
		slog.Error("render novel page failed", "error", err, "slug", slugParam)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	p.pageCache.Set(ctx, cache.SlugKey(slugParam), rendered)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(rendered)
}

// imageURL resolves the public URL for a novel's cover, or "" if none.
func (p *Public) imageURL(post *models.Post) string {
	if !post.HasImage() || p.storageClient == nil {
		return ""
	}
	return p.storageClient.FileURL(*post.Image)
}
