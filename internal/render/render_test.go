package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"novelpress/internal/middleware"
	"novelpress/internal/models"
	"novelpress/internal/session"
)

// helperSession returns a session.Data suitable for rendering dashboard templates.
func helperSession() *session.Data {
	return &session.Data{
		UserID:    uuid.New(),
		Email:     "author@novelpress.local",
		PenName:   "Ink Weaver",
		TwoFADone: true,
	}
}

// helperRequestWithContext builds an *http.Request whose context carries a
// session, which the dashboard templates expect.
func helperRequestWithContext(method, target string, sess *session.Data) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if sess != nil {
		ctx := context.WithValue(req.Context(), middleware.SessionKey, sess)
		req = req.WithContext(ctx)
	}
	return req
}

func helperNovel() *models.Post {
	return &models.Post{
		ID:           uuid.New(),
		Title:        "The Clockwork Garden",
		Slug:         "the-clockwork-garden",
		CategoryID:   uuid.New(),
		Body:         "<p>Chapter one.</p>",
		BodyFormat:   models.BodyFormatHTML,
		Excerpt:      "Chapter one....",
		UserID:       uuid.New(),
		CategoryName: "Fantasy",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// --------------------------------------------------------------------------
// TestNew: verify renderer creation in dev mode and prod mode
// --------------------------------------------------------------------------

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		devMode bool
	}{
		{"dev mode", true},
		{"prod mode", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rn, err := New(tt.devMode, nil)
			if err != nil {
				t.Fatalf("New(devMode=%v) returned error: %v", tt.devMode, err)
			}
			if len(rn.templates) == 0 {
				t.Error("renderer has no parsed templates")
			}

			for _, name := range []string{"novels_list", "novel_form", "novel_show", "login", "2fa_setup", "2fa_verify", "home", "novel"} {
				if _, ok := rn.templates[name]; !ok {
					t.Errorf("expected template %q to be parsed", name)
				}
			}

			// base.html should NOT appear as a standalone template key.
			if _, ok := rn.templates["base"]; ok {
				t.Error("base.html should not be registered as a separate template")
			}
		})
	}
}

// --------------------------------------------------------------------------
// TestDevModeAssets: isDev controls CDN vs local asset references
// --------------------------------------------------------------------------

func TestDevModeAssets(t *testing.T) {
	rn, err := New(true, nil)
	if err != nil {
		t.Fatalf("New(true) error: %v", err)
	}

	w := httptest.NewRecorder()
	req := helperRequestWithContext(http.MethodGet, "/login", nil)
	rn.Page(w, req, "login", &PageData{Title: "Sign in", Data: map[string]any{}})

	body := w.Body.String()
	if !strings.Contains(body, "cdn.tailwindcss.com") {
		t.Error("dev mode: expected CDN tailwindcss URL in rendered output")
	}
	if strings.Contains(body, "/static/app.css") {
		t.Error("dev mode: should NOT contain local static asset path")
	}
}

func TestProdModeAssets(t *testing.T) {
	rn, err := New(false, nil)
	if err != nil {
		t.Fatalf("New(false) error: %v", err)
	}

	w := httptest.NewRecorder()
	req := helperRequestWithContext(http.MethodGet, "/login", nil)
	rn.Page(w, req, "login", &PageData{Title: "Sign in", Data: map[string]any{}})

	body := w.Body.String()
	if strings.Contains(body, "cdn.tailwindcss.com") {
		t.Error("prod mode: should NOT contain CDN tailwindcss URL")
	}
	if !strings.Contains(body, "/static/app.css") {
		t.Error("prod mode: expected local static asset path in rendered output")
	}
}

// --------------------------------------------------------------------------
// TestNovelsListRendering: full page render with session and novels
// --------------------------------------------------------------------------

func TestNovelsListRendering(t *testing.T) {
	rn, err := New(true, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	sess := helperSession()
	req := helperRequestWithContext(http.MethodGet, "/dashboard/post", sess)
	w := httptest.NewRecorder()

	rn.Page(w, req, "novels_list", &PageData{
		Title:   "My Novels",
		Section: "novels",
		Session: sess,
		Data:    map[string]any{"Novels": []*models.Post{helperNovel()}},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
	}

	body := w.Body.String()
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("full page render should contain <!DOCTYPE html>")
	}
	if !strings.Contains(body, "NovelPress") {
		t.Error("full page render should contain branding")
	}
	if !strings.Contains(body, "The Clockwork Garden") {
		t.Error("rendered output should contain the novel title")
	}
	if !strings.Contains(body, "Ink Weaver") {
		t.Error("rendered output should contain the session pen name")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type: got %q, want %q", ct, "text/html; charset=utf-8")
	}
}

func TestNovelsListEmpty(t *testing.T) {
	rn, err := New(true, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	sess := helperSession()
	req := helperRequestWithContext(http.MethodGet, "/dashboard/post", sess)
	w := httptest.NewRecorder()

	rn.Page(w, req, "novels_list", &PageData{
		Title:   "My Novels",
		Section: "novels",
		Data:    map[string]any{"Novels": []*models.Post{}},
	})

	if !strings.Contains(w.Body.String(), "haven't published any novels") {
		t.Error("empty list should render the empty state")
	}
}

// --------------------------------------------------------------------------
// TestNovelFormRendering: form renders field errors and categories
// --------------------------------------------------------------------------

func TestNovelFormRendering(t *testing.T) {
	rn, err := New(true, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	sess := helperSession()
	req := helperRequestWithContext(http.MethodGet, "/dashboard/post/create", sess)
	w := httptest.NewRecorder()

	catID := uuid.New()
	rn.Page(w, req, "novel_form", &PageData{
		Title:   "New Novel",
		Section: "novels",
		Data: map[string]any{
			"Novel":      &models.Post{CategoryID: catID},
			"Categories": []*models.Category{{ID: catID, Name: "Fantasy"}},
			"Errors":     map[string]string{"title": "The title field is required."},
			"Action":     "/dashboard/post",
			"IsEdit":     false,
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
	}

	body := w.Body.String()
	if !strings.Contains(body, "The title field is required.") {
		t.Error("form should render the field error message")
	}
	if !strings.Contains(body, "Fantasy") {
		t.Error("form should render category options")
	}
	if !strings.Contains(body, "selected") {
		t.Error("the novel's category should be preselected")
	}
	if strings.Contains(body, `name="_method" value="PUT"`) {
		t.Error("create form should not carry a method override")
	}
}

// --------------------------------------------------------------------------
// TestHTMXPartialRendering: HTMX requests only render the content block
// --------------------------------------------------------------------------

func TestHTMXPartialRendering(t *testing.T) {
	rn, err := New(true, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	sess := helperSession()
	req := helperRequestWithContext(http.MethodGet, "/dashboard/post", sess)
	req.Header.Set("HX-Request", "true")

	w := httptest.NewRecorder()
	rn.Page(w, req, "novels_list", &PageData{
		Title:   "My Novels",
		Section: "novels",
		Data:    map[string]any{"Novels": []*models.Post{helperNovel()}},
	})

	body := w.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("HTMX partial should NOT contain <!DOCTYPE html>")
	}
	if !strings.Contains(body, "The Clockwork Garden") {
		t.Error("HTMX partial should contain the list content block")
	}
}

// --------------------------------------------------------------------------
// TestStandaloneTemplates: login and 2FA pages render without the layout
// --------------------------------------------------------------------------

func TestStandaloneTemplates(t *testing.T) {
	rn, err := New(true, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	for _, name := range []string{"login", "2fa_setup", "2fa_verify"} {
		t.Run(name, func(t *testing.T) {
			req := helperRequestWithContext(http.MethodGet, "/"+name, nil)
			w := httptest.NewRecorder()

			rn.Page(w, req, name, &PageData{Title: name, Data: map[string]any{}})

			if w.Code != http.StatusOK {
				t.Fatalf("template %q: expected 200, got %d; body: %s", name, w.Code, w.Body.String())
			}

			body := w.Body.String()
			if !strings.Contains(body, "<!DOCTYPE html>") {
				t.Errorf("template %q: expected standalone HTML with <!DOCTYPE html>", name)
			}
			if strings.Contains(body, "Sign out") {
				t.Errorf("template %q: should NOT contain the dashboard nav", name)
			}
		})
	}
}

// --------------------------------------------------------------------------
// TestPublicNovelRendering: public page renders pre-rendered body HTML
// --------------------------------------------------------------------------

func TestPublicNovelRendering(t *testing.T) {
	rn, err := New(true, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	req := helperRequestWithContext(http.MethodGet, "/novel/the-clockwork-garden", nil)
	w := httptest.NewRecorder()

	rn.Page(w, req, "novel", &PageData{
		Title: "The Clockwork Garden",
		Data: map[string]any{
			"Novel":    helperNovel(),
			"BodyHTML": "<p>Chapter one.</p>",
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
	}

	body := w.Body.String()
	// safeHTML must pass the markup through unescaped.
	if !strings.Contains(body, "<p>Chapter one.</p>") {
		t.Error("body HTML should be rendered unescaped")
	}
}

// --------------------------------------------------------------------------
// TestMissingTemplate: Page() with nonexistent template returns 500
// --------------------------------------------------------------------------

func TestMissingTemplate(t *testing.T) {
	rn, err := New(true, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	req := helperRequestWithContext(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()

	rn.Page(w, req, "nonexistent_template", &PageData{Title: "Not Found"})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not found") {
		t.Error("error response should mention template not found")
	}
}

// --------------------------------------------------------------------------
// TestCSRFInjection: CSRF token from the request cookie lands in PageData
// --------------------------------------------------------------------------

func TestCSRFInjection(t *testing.T) {
	rn, err := New(true, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	req := helperRequestWithContext(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "known-token"})
	w := httptest.NewRecorder()

	data := &PageData{Title: "Sign in", Data: map[string]any{}}
	rn.Page(w, req, "login", data)

	if data.CSRFToken != "known-token" {
		t.Errorf("PageData.CSRFToken: got %q, want %q", data.CSRFToken, "known-token")
	}
	if !strings.Contains(w.Body.String(), "known-token") {
		t.Error("rendered output should contain the CSRF token")
	}
}

// --------------------------------------------------------------------------
// TestSessionInjectionFromContext: session is injected when not set
// --------------------------------------------------------------------------

func TestSessionInjectionFromContext(t *testing.T) {
	rn, err := New(true, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	sess := helperSession()
	req := helperRequestWithContext(http.MethodGet, "/dashboard/post", sess)
	w := httptest.NewRecorder()

	data := &PageData{
		Title:   "My Novels",
		Section: "novels",
		Data:    map[string]any{"Novels": []*models.Post{}},
	}
	rn.Page(w, req, "novels_list", data)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
	}

	if data.Session == nil {
		t.Fatal("expected Session to be injected from context")
	}
	if data.Session.PenName != "Ink Weaver" {
		t.Errorf("Session.PenName: got %q, want %q", data.Session.PenName, "Ink Weaver")
	}
}

// --------------------------------------------------------------------------
// TestIsHTMXHelper: internal helper detects HX-Request header
// --------------------------------------------------------------------------

func TestIsHTMXHelper(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected bool
	}{
		{"no header", "", false},
		{"header true", "true", true},
		{"header false", "false", false},
		{"header random", "yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Request", tt.header)
			}
			if got := isHTMX(req); got != tt.expected {
				t.Errorf("isHTMX(): got %v, want %v", got, tt.expected)
			}
		})
	}
}
