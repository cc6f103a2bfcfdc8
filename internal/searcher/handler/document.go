package handler

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/logger"
)

var errOutsideRoots = errors.New("outside document roots")

// Document serves the contents of a matched document. The name must be
// indexed by a loaded shard and resolve inside one of the configured
// document roots; symlinks may not lead out of the root.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	name := r.URL.Query().Get("name")
	if name == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'name' is required")
		return
	}
	if len(h.cfg.DocumentRoots) == 0 {
		h.writeError(w, http.StatusNotFound, "document serving is disabled")
		return
	}

	known, err := h.searcher.HasDocument(name)
	if err != nil {
		log.Error("document lookup failed", "name", name, "error", err)
		h.writeFailure(w, err)
		return
	}
	if !known {
		h.writeError(w, http.StatusNotFound, "document is not indexed")
		return
	}

	f, err := openUnderRoots(h.cfg.DocumentRoots, name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		h.writeError(w, http.StatusNotFound, "document no longer exists")
		return
	case err != nil:
		log.Warn("document refused", "name", name, "error", err)
		h.writeError(w, http.StatusForbidden, "document is outside the served directories")
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil || !st.Mode().IsRegular() {
		h.writeError(w, http.StatusNotFound, "document is not a regular file")
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, filepath.Base(name), st.ModTime(), f)
}

// openUnderRoots opens name through the first root that contains it.
func openUnderRoots(roots []string, name string) (*os.File, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(rootAbs, abs)
		if err != nil || !filepath.IsLocal(rel) {
			continue
		}
		dir, err := os.OpenRoot(rootAbs)
		if err != nil {
			return nil, err
		}
		f, err := dir.Open(rel)
		dir.Close()
		return f, err
	}
	return nil, errOutsideRoots
}
