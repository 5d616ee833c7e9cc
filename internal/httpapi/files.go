package httpapi

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"audiograb/internal/artifacts"
)

// handleFile serves a published file by name. Only regular files directly
// inside the output directory with a generated-looking name are served.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, publicPrefix(s.cfg))
	if !validFileName(name) {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	path := filepath.Join(s.cfg.Paths.OutputDir, name)
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	file, err := os.Open(path)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, name, info.ModTime(), file)
}

// validFileName accepts a single local path element. Dots inside the name
// are fine since sanitized titles keep them ("Wait..._What.mp3").
func validFileName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	if name != filepath.Base(name) || !filepath.IsLocal(name) {
		return false
	}
	return strings.HasSuffix(name, artifacts.Extension) && len(name) > len(artifacts.Extension)
}
