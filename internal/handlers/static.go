package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// HandleStatic serves the browser UI from the static directory. Without a
// deployed UI the root answers with a short JSON index of the API.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/static/")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		path = "index.html"
	}

	// Prevent directory traversal attacks
	if strings.Contains(path, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	file := filepath.Join(h.staticDir, path)
	if path == "index.html" {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			h.writeJSON(w, map[string]string{
				"service":  "studio",
				"state":    "/api/state",
				"projects": "/api/projects",
				"health":   "/healthcheck",
			})
			return
		}
	}

	switch {
	case strings.HasSuffix(path, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(path, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	case strings.HasSuffix(path, ".html"):
		w.Header().Set("Content-Type", "text/html")
	}

	http.ServeFile(w, r, file)
}
