// Package ui serves the embedded board dashboard.
package ui

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// DistFS returns the embedded dist/ filesystem with the "dist" prefix stripped.
func DistFS() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}

type pageData struct {
	UserID string
}

// Handler returns an http.Handler that serves the embedded dashboard with SPA
// fallback. index.html is rendered once with userID, which the page sends as
// X-User-ID on every API call. Paths without a file extension are treated as
// client-side routes and served index.html. Missing assets return 404.
func Handler(userID string) (http.Handler, error) {
	sub, err := DistFS()
	if err != nil {
		return nil, err
	}

	tmpl, err := template.ParseFS(sub, "index.html")
	if err != nil {
		return nil, err
	}
	var page bytes.Buffer
	if err := tmpl.Execute(&page, pageData{UserID: userID}); err != nil {
		return nil, err
	}
	index := page.Bytes()

	fileServer := http.FileServerFS(sub)

	serveIndex := func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(index)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := path.Clean(r.URL.Path)
		if p == "/" || p == "/index.html" {
			serveIndex(w)
			return
		}

		// Strip leading slash for fs operations
		p = strings.TrimPrefix(p, "/")

		if _, err := fs.Stat(sub, p); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}

		// Has extension (e.g. .js, .css, .png): genuine missing asset
		if strings.Contains(p, ".") {
			http.NotFound(w, r)
			return
		}

		serveIndex(w)
	}), nil
}
