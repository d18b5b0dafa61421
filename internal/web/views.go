package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutFile   = "layout.html"
	layoutName   = "layout"
	templatesDir = "templates"
)

// Views renders the embedded page templates. It satisfies fiber.Views, so
// handlers use fiber.Ctx.Render. Each page is parsed together with the
// shared layout.
type Views struct {
	mu    sync.RWMutex
	pages map[string]*template.Template
}

func NewViews() *Views {
	return &Views{}
}

// Load parses every page template. Fiber calls it once when the app is
// created.
func (v *Views) Load() error {
	entries, err := fs.ReadDir(templateFS, templatesDir)
	if err != nil {
		return fmt.Errorf("read templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(entries))
	for _, e := range entries {
		if e.IsDir() || e.Name() == layoutFile {
			continue
		}
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		t, err := template.ParseFS(templateFS,
			path.Join(templatesDir, layoutFile),
			path.Join(templatesDir, e.Name()))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}

	v.mu.Lock()
	v.pages = pages
	v.mu.Unlock()
	return nil
}

// Render executes the named page inside the layout. Layout arguments are
// ignored; every page uses the same one.
func (v *Views) Render(w io.Writer, name string, binding interface{}, _ ...string) error {
	v.mu.RLock()
	loaded := v.pages != nil
	t, ok := v.pages[name]
	v.mu.RUnlock()

	if !loaded {
		if err := v.Load(); err != nil {
			return err
		}
		v.mu.RLock()
		t, ok = v.pages[name]
		v.mu.RUnlock()
	}
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, layoutName, binding)
}
