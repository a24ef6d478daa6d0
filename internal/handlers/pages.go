package handlers

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	common "github.com/bobmcallan/stock-portal/internal/common"
)

// FindPagesDir locates the pages directory.
func FindPagesDir() string {
	dirs := []string{
		"./pages",
		"../pages",
		"../../pages",
		".",
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return "."
}

// LoadTemplates parses the page templates and their partials.
func LoadTemplates() *template.Template {
	pagesDir := FindPagesDir()

	templates := template.Must(template.ParseGlob(filepath.Join(pagesDir, "*.html")))
	template.Must(templates.ParseGlob(filepath.Join(pagesDir, "partials", "*.html")))
	return templates
}

// StaticHandler serves static files (CSS, JS, images) from pages/static.
type StaticHandler struct {
	logger *common.Logger
	dir    string
}

// NewStaticHandler creates a static file handler rooted at pages/static.
func NewStaticHandler(logger *common.Logger) *StaticHandler {
	return &StaticHandler{logger: logger, dir: filepath.Join(FindPagesDir(), "static")}
}

// ServeHTTP handles GET /static/{path...}.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	path := r.URL.Path[len("/static/"):]
	fullPath := filepath.Join(h.dir, path)

	// Security: prevent directory traversal
	absStaticDir, _ := filepath.Abs(h.dir)
	absFullPath, _ := filepath.Abs(fullPath)
	if len(absFullPath) < len(absStaticDir) || absFullPath[:len(absStaticDir)] != absStaticDir {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, fullPath)
}
