// Package render provides HTML template rendering for the author dashboard
// and the public site. It supports full-page and HTMX partial rendering,
// detecting the request type via the HX-Request header.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"novelpress/internal/middleware"
	"novelpress/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData holds all data passed to templates.
type PageData struct {
	Title     string         // Page title for <title> tag
	Section   string         // Active nav section (e.g., "novels")
	Session   *session.Data  // Current user session (nil if unauthenticated)
	CSRFToken string         // CSRF token for forms and HTMX headers
	Data      map[string]any // Page-specific data
	Flashes   []session.Flash
}

// Renderer handles template parsing and execution.
type Renderer struct {
	templates map[string]*template.Template
	sessions  *session.Store
	funcMap   template.FuncMap
}

// standaloneTemplates lists templates that render as full HTML pages
// without the dashboard layout (they have their own <html>, <head>, etc.).
var standaloneTemplates = map[string]bool{
	"login":      true,
	"2fa_setup":  true,
	"2fa_verify": true,
	"home":       true,
	"novel":      true,
}

// New creates a Renderer by parsing all templates from the embedded
// filesystem. Each dashboard template is paired with the base layout.
// When devMode is true, templates use CDN-hosted assets.
func New(devMode bool, sessions *session.Store) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		sessions:  sessions,
		funcMap: template.FuncMap{
			"activeClass": func(current, target string) string {
				if current == target {
					return "bg-gray-900 text-white"
				}
				return "text-gray-300 hover:bg-gray-700 hover:text-white"
			},
			// deref safely dereferences a string pointer for use in templates.
			"deref": func(s *string) string {
				if s == nil {
					return ""
				}
				return *s
			},
			// isDev returns true when the app runs in development mode.
			"isDev": func() bool {
				return devMode
			},
			// uuidEq compares a uuid.UUID with another for <select> preselection.
			"uuidEq": func(a, b uuid.UUID) bool {
				return a == b
			},
			// formatDate renders timestamps in a short human-readable form.
			"formatDate": func(t time.Time) string {
				return t.Format("Jan 2, 2006")
			},
			// safeHTML marks pre-rendered markup as safe for direct output.
			// Only used for body HTML produced server-side.
			"safeHTML": func(s string) template.HTML {
				return template.HTML(s)
			},
		},
	}

	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	// Parse each page template paired with the base layout.
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		name := e.Name()
		if name == "base.html" {
			continue
		}

		// Strip .html extension for the template name.
		tmplName := name[:len(name)-len(filepath.Ext(name))]

		var tmpl *template.Template
		var parseErr error

		// Standalone templates render as full pages without the base layout.
		if standaloneTemplates[tmplName] {
			tmpl, parseErr = template.New(name).Funcs(r.funcMap).ParseFS(
				templateFS, "templates/"+name,
			)
		} else {
			tmpl, parseErr = template.New("base.html").Funcs(r.funcMap).ParseFS(
				templateFS, "templates/base.html", "templates/"+name,
			)
		}

		if parseErr != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, parseErr)
		}

		r.templates[tmplName] = tmpl
	}

	return r, nil
}

// Page renders a full page or an HTMX partial, depending on the request
// headers. For HTMX requests, only the "content" block is sent.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	tmpl, ok := rn.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = &PageData{}
	}

	// Inject CSRF token from context (set by CSRF middleware).
	data.CSRFToken = middleware.GetCSRFToken(r)

	// Inject session from context.
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}

	// Pop one-time flash messages queued by earlier requests.
	if data.Flashes == nil && rn.sessions != nil {
		data.Flashes = rn.sessions.PopFlashes(r.Context(), r)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	// HTMX request: render only the content fragment.
	if isHTMX(r) && !standaloneTemplates[name] {
		if err := executeTemplate(w, tmpl, "content", data); err != nil {
			http.Error(w, "template error", http.StatusInternalServerError)
		}
		return
	}

	execName := "base.html"
	if standaloneTemplates[name] {
		execName = name + ".html"
	}

	if err := executeTemplate(w, tmpl, execName, data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// Render executes a template into a byte slice instead of a ResponseWriter.
// Used by the public handlers so rendered pages can be stored in the page
// cache before being written out.
func (rn *Renderer) Render(name string, data *PageData) ([]byte, error) {
	tmpl, ok := rn.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}

	if data == nil {
		data = &PageData{}
	}

	execName := "base.html"
	if standaloneTemplates[name] {
		execName = name + ".html"
	}

	var buf bytes.Buffer
	if err := executeTemplate(&buf, tmpl, execName, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// executeTemplate wraps template execution with error handling.
func executeTemplate(w io.Writer, tmpl *template.Template, name string, data any) error {
	return tmpl.ExecuteTemplate(w, name, data)
}

// isHTMX returns true if the request was made by HTMX (has HX-Request header).
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
