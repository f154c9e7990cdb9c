package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"homereader/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"login", "home", "bookmarks", "bookmark"}

// renderer 每个页面单独解析，共享 layout
type renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

// pageData is passed to the layout; Body is the page-specific view model.
type pageData struct {
	Title string
	Body  any
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = t
	}

	fragments, err := template.New("fragments").ParseFS(templateFS, "templates/listen.html")
	if err != nil {
		return nil, fmt.Errorf("parse fragments: %w", err)
	}
	r.fragments = fragments
	return r, nil
}

// page renders a full document wrapped in the layout.
func (r *renderer) page(w http.ResponseWriter, status int, name, title string, body any) {
	t, ok := r.pages[name]
	if !ok {
		http.Error(w, "Unknown page", http.StatusInternalServerError)
		return
	}
	r.write(w, status, t, "layout", pageData{Title: title, Body: body})
}

// fragment renders a named htmx fragment without the layout.
func (r *renderer) fragment(w http.ResponseWriter, name string, data any) {
	r.write(w, http.StatusOK, r.fragments, name, data)
}

func (r *renderer) write(w http.ResponseWriter, status int, t *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("[server] 渲染模板失败", logger.String("template", name), logger.ErrorField(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
