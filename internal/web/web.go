// Package web serves the embedded signup frontend.
package web

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"
	"time"
)

// IndexPath is where the root route redirects to.
const IndexPath = "/static/index.html"

//go:embed static
var assets embed.FS

// RegisterRoutes wires the root redirect and static assets to the mux.
func RegisterRoutes(mux *http.ServeMux) {
	static, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}

	mux.HandleFunc("GET /{$}", redirectToIndex)
	mux.HandleFunc("GET "+IndexPath, serveIndex(static))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
}

func redirectToIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, IndexPath, http.StatusTemporaryRedirect)
}

// serveIndex answers the index page directly; http.FileServer would redirect
// any path ending in /index.html to its directory.
func serveIndex(static fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(static, "index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(data))
	}
}
