// Package static serves the pre-built UI bundle with a single-page fallback:
// any path that does not name a file gets the entry document.
package static

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

// Handler serves a built asset bundle. Paths that are not regular files get
// the entry document so client-side routes resolve.
type Handler struct {
	root   fs.FS
	entry  string
	files  http.Handler
	logger *slog.Logger
}

// New serves root with entry as the fallback document.
func New(root fs.FS, entry string, logger *slog.Logger) *Handler {
	return &Handler{
		root:   root,
		entry:  entry,
		files:  http.FileServer(http.FS(root)),
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name != "" && name != h.entry && h.isFile(name) {
		h.files.ServeHTTP(w, r)
		return
	}

	h.serveEntry(w, r)
}

func (h *Handler) isFile(name string) bool {
	info, err := fs.Stat(h.root, name)
	return err == nil && info.Mode().IsRegular()
}

func (h *Handler) serveEntry(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.root, h.entry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			h.logger.Error("entry document missing", "entry", h.entry)
		} else {
			h.logger.Error("read entry document", "entry", h.entry, "err", err)
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	w.Write(data)
}
