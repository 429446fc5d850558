// ABOUTME: TemplateEngine loads embedded HTML templates and renders them with Go's html/template.
// ABOUTME: Templates are embedded at compile time via go:embed for zero runtime path issues.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateEngine loads and renders embedded HTML templates.
type TemplateEngine struct {
	templates map[string]*template.Template
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"eq": func(a, b string) bool { return a == b },
	}
}

// NewTemplateEngine parses all embedded templates. Each page template is
// parsed together with the layout so that the layout wraps every page.
func NewTemplateEngine() (*TemplateEngine, error) {
	pages := []string{
		"timeline.html",
		"plots.html",
	}

	engine := &TemplateEngine{templates: make(map[string]*template.Template)}
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(templateFuncs()).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		engine.templates[page] = t
	}
	return engine, nil
}

// Render executes the named template with data and writes it to w as HTML.
func (e *TemplateEngine) Render(w http.ResponseWriter, name string, data any) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.RenderTo(w, name, data)
}

// RenderTo executes the named template into an arbitrary writer.
func (e *TemplateEngine) RenderTo(w io.Writer, name string, data any) error {
	t, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}
