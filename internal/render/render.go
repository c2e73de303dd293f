// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render renders the site's html/template pages.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/corpsite/internal/content"
	"github.com/olegiv/corpsite/internal/model"
	"github.com/olegiv/corpsite/internal/session"
)

// Flash types.
const (
	FlashInfo    = "info"
	FlashSuccess = "success"
	FlashError   = "error"
)

const flashTypeKey = "flash_type"

// Template groups. Pages of every group are parsed with the base layout and
// all partials; admin pages add the admin layout.
var groups = []struct {
	dir     string
	layouts []string
}{
	{dir: "pages", layouts: []string{"layouts/base.html"}},
	{dir: "auth", layouts: []string{"layouts/base.html"}},
	{dir: "admin", layouts: []string{"layouts/base.html", "layouts/admin.html"}},
}

// Renderer handles template rendering with caching.
type Renderer struct {
	templates      map[string]*template.Template
	sessionManager *scs.SessionManager
	siteName       string
	logger         *slog.Logger
	now            func() time.Time
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
	SiteName       string
	Logger         *slog.Logger
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates:      make(map[string]*template.Template),
		sessionManager: cfg.SessionManager,
		siteName:       cfg.SiteName,
		logger:         cfg.Logger,
		now:            time.Now,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}

	return r, nil
}

// parseTemplates parses all templates from the filesystem.
func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := templateFiles(templatesFS, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}

	for _, g := range groups {
		pages, err := templateFiles(templatesFS, g.dir)
		if err != nil {
			return fmt.Errorf("getting %s templates: %w", g.dir, err)
		}

		for _, tmplPath := range pages {
			name := g.dir + "/" + strings.TrimSuffix(path.Base(tmplPath), ".html")

			// Parse in order: layouts, partials, page template
			files := append([]string{}, g.layouts...)
			files = append(files, partials...)
			files = append(files, tmplPath)

			tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, files...)
			if err != nil {
				return fmt.Errorf("parsing template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}

	if len(r.templates) == 0 {
		return fmt.Errorf("no templates found")
	}
	return nil
}

// templateFiles returns all .html files in a directory.
func templateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	var files []string

	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		// Directory might not exist, that's ok
		return files, nil
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// Has reports whether the named template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(v any) string {
			if t, ok := v.(time.Time); ok && !t.IsZero() {
				return t.Format("Jan 2, 2006")
			}
			return ""
		},
		"formatDateTime": func(v any) string {
			if t, ok := v.(time.Time); ok && !t.IsZero() {
				return t.Format("Jan 2, 2006 3:04 PM")
			}
			return ""
		},
		"truncate": func(s string, length int) string {
			return content.Excerpt(s, length)
		},
		"markdown": func(s string) template.HTML {
			html, err := content.RenderMarkdown(s)
			if err != nil {
				return template.HTML(template.HTMLEscapeString(s)) //nolint:gosec // escaped
			}
			return html
		},
		"field": func(record map[string]any, name string) string {
			return fieldString(record[name])
		},
		"list": func(v any) []string {
			return stringList(v)
		},
		"add": func(a, b int) int {
			return a + b
		},
		"hasPrefix": strings.HasPrefix,
	}
}

// fieldString formats a record value for display.
func fieldString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("Jan 2, 2006")
	case []any:
		return strings.Join(stringList(val), ", ")
	default:
		return fmt.Sprint(val)
	}
}

func stringList(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := fieldString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title       string
	SiteName    string
	Settings    model.SiteSettings
	Session     session.State
	IsAdmin     bool
	CurrentPath string
	Flash       string
	FlashType   string
	CurrentYear int
	Data        any
}

// Render renders a template with status 200.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status. The session state
// and the pending flash message are added to data.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.CurrentYear = r.now().Year()
	data.CurrentPath = req.URL.Path
	if data.SiteName == "" {
		data.SiteName = r.siteName
	}
	if m, err := session.FromContext(req.Context()); err == nil {
		data.Session = m.State()
		data.IsAdmin = m.IsAdmin()
	}

	if r.sessionManager != nil && data.Flash == "" {
		if flash := session.PopFlash(req.Context(), r.sessionManager); flash != "" {
			data.Flash = flash
			data.FlashType = r.sessionManager.PopString(req.Context(), flashTypeKey)
		}
	}
	if data.Flash != "" && data.FlashType == "" {
		data.FlashType = FlashInfo
	}

	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Debug("writing response", "template", name, "error", err)
	}
	return nil
}

// SetFlash sets a flash message in the session.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager != nil {
		session.PutFlash(req.Context(), r.sessionManager, message)
		r.sessionManager.Put(req.Context(), flashTypeKey, flashType)
	}
}
