// Package web holds the server-rendered pages and the directories they are served from.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"tefi/server/internal/models"
)

const (
	Patent = "NO 349195"
	Title  = "TEFI Local"

	NotFoundMessage = "Bolig ikke funnet – sjekk linken"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates. Each page is addressed by its
// file name, e.g. "dashboard.html".
func Templates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"price": models.FormatPriceGuide,
		"date": func(t time.Time) string {
			return t.Local().Format("02.01.2006 15:04")
		},
		"link": func(baseURL, path string) string {
			return strings.TrimRight(baseURL, "/") + path
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// EnsureDirs creates the given directories if they are missing.
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
