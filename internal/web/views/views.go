package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

//go:embed *.html partials/*.html
var templatesFS embed.FS

// Engine renders full pages wrapped in the layout and standalone partials
type Engine struct {
	templates map[string]*template.Template
	partials  map[string]*template.Template
}

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"signed": func(n int) string {
		if n > 0 {
			return fmt.Sprintf("+%d", n)
		}
		return fmt.Sprint(n)
	},
}

func New() (*Engine, error) {
	e := &Engine{
		templates: make(map[string]*template.Template),
		partials:  make(map[string]*template.Template),
	}

	layoutTmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "layout.html")
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(templatesFS, ".")
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == "layout.html" {
			continue
		}

		name := entry.Name()
		tmpl, err := layoutTmpl.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := tmpl.ParseFS(templatesFS, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		e.templates[strings.TrimSuffix(name, filepath.Ext(name))] = tmpl
	}

	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return nil, err
	}
	for _, path := range partials {
		name := filepath.Base(path)
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templatesFS, path)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		e.partials[strings.TrimSuffix(name, filepath.Ext(name))] = tmpl
	}

	return e, nil
}

// Render renders a page inside the layout
func (e *Engine) Render(w io.Writer, name string, data any) error {
	tmpl, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return tmpl.Execute(w, data)
}

// RenderPartial renders a fragment without the layout
func (e *Engine) RenderPartial(w io.Writer, name string, data any) error {
	tmpl, ok := e.partials[name]
	if !ok {
		return fmt.Errorf("unknown partial %q", name)
	}
	return tmpl.Execute(w, data)
}
