// Package view renders the HTML pages of the notes application.
//
// TEMPLATE COMPOSITION:
// base.html defines the page chrome with a {{template "content" .}} slot.
// Every other *.html file defines "content" (and optionally "title"). Each
// page is parsed together with its own copy of base.html so two pages can
// define the same block names without clashing.
//
// Page names are paths relative to the template root, e.g. "notes/list.html".
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/sakif/notes/internal/model"
)

const (
	baseTemplate  = "base.html"
	errorTemplate = "error.html"
)

// Page is the data every template receives.
//
// Handlers fill only what the page needs. ObjectList feeds the list page,
// Object the detail/delete pages, Form the add/edit/login/signup forms.
type Page struct {
	Title         string
	CurrentUser   *model.User
	ObjectList    []model.Note
	Object        *model.Note
	Form          any
	Next          string
	GitHubEnabled bool
	Error         string
	StatusCode    int
}

// Renderer holds one parsed template set per page. Templates are parsed once
// at startup and are read-only afterwards, so no locking is needed.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses base.html plus every other .html file found in fsys.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	base, err := fs.ReadFile(fsys, baseTemplate)
	if err != nil {
		return nil, fmt.Errorf("view: reading base template: %w", err)
	}

	r := &Renderer{templates: make(map[string]*template.Template)}

	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == baseTemplate || !strings.HasSuffix(path, ".html") {
			return nil
		}

		page, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("view: reading %s: %w", path, err)
		}

		tmpl, err := template.New("base").Funcs(funcMap()).Parse(string(base))
		if err != nil {
			return fmt.Errorf("view: parsing base for %s: %w", path, err)
		}
		if _, err := tmpl.Parse(string(page)); err != nil {
			return fmt.Errorf("view: parsing %s: %w", path, err)
		}

		r.templates[path] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(r.templates) == 0 {
		return nil, fmt.Errorf("view: no page templates found")
	}
	return r, nil
}

// Render executes page with data and writes it with the given status.
//
// The page is rendered into a buffer so a template error never leaves a
// partial response behind.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data *Page) error {
	tmpl, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("view: template %q not found", page)
	}

	if data == nil {
		data = &Page{}
	}
	data.StatusCode = status

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("view: executing %q: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// RenderError renders error.html with the status text and message. Falls
// back to a plain-text response if the error page itself cannot render.
func (r *Renderer) RenderError(w http.ResponseWriter, status int, message string, user *model.User) {
	data := &Page{
		Title:       http.StatusText(status),
		Error:       message,
		CurrentUser: user,
	}
	if err := r.Render(w, status, errorTemplate, data); err != nil {
		http.Error(w, fmt.Sprintf("%d %s", status, message), status)
	}
}

// Has reports whether a page template was loaded.
func (r *Renderer) Has(page string) bool {
	_, ok := r.templates[page]
	return ok
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"markdown":   Markdown,
		"formatTime": formatTime,
		"truncate":   truncate,
		"statusText": http.StatusText,
	}
}

// Markdown converts note text to sanitized HTML.
//
// Raw HTML in the note is allowed through the parser but then filtered by
// bluemonday's UGC policy, so <script>, event handlers and javascript: URLs
// never reach the page.
func Markdown(s string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(s))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})
	out := markdown.Render(doc, renderer)

	return template.HTML(sanitizer.SanitizeBytes(out))
}

var sanitizer = bluemonday.UGCPolicy()

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 15:04")
}

// truncate shortens s to n runes, ending with "..." when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
