// Package ui serves the embedded dashboard page.
package ui

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// Config is exposed to the page as window.REVDASH_CONFIG via /config.js.
type Config struct {
	APIURL string `json:"apiUrl"`
	Days   int    `json:"days"`
}

// DistFS returns the embedded dist/ filesystem with the "dist" prefix stripped.
func DistFS() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}

// Handler serves the dashboard. /config.js is generated from cfg; other
// paths are served from dist/, and extension-less paths fall back to
// index.html so client-side routes survive a reload.
func Handler(cfg Config) (http.Handler, error) {
	sub, err := DistFS()
	if err != nil {
		return nil, err
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "/api"
	}

	configJS, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	fileServer := http.FileServerFS(sub)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(path.Clean(r.URL.Path), "/")

		switch {
		case p == "config.js":
			w.Header().Set("Content-Type", "application/javascript")
			w.Header().Set("Cache-Control", "no-store")
			_, _ = w.Write([]byte("window.REVDASH_CONFIG = " + string(configJS) + ";\n"))
			return
		case p == "" || p == ".":
			fileServer.ServeHTTP(w, r)
			return
		}

		if _, err := fs.Stat(sub, p); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}

		// Missing asset with an extension is a real 404.
		if strings.Contains(path.Base(p), ".") {
			http.NotFound(w, r)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	}), nil
}
