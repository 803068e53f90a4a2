package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"ScoreFM/logger"
	"ScoreFM/storage"

	"github.com/gorilla/mux"
)

// AudioHandler streams a previously produced audio artifact by
// filename, probing the local output directories first and the MinIO
// mirror as a fallback.
func (h *APIHandler) AudioHandler(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if filename == "" || filename != filepath.Base(filename) {
		writeError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	for _, dir := range h.audioDirs() {
		path := filepath.Join(dir, filename)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			w.Header().Set("Content-Type", storage.ContentTypeFor(filename))
			http.ServeFile(w, r, path)
			return
		}
	}

	if h.store != nil {
		object, err := h.store.FetchAudio(r.Context(), filename)
		if err == nil {
			defer object.Close()
			w.Header().Set("Content-Type", storage.ContentTypeFor(filename))
			if _, err := io.Copy(w, object); err != nil {
				logger.Warn("error streaming mirrored audio", logger.ErrorField(err))
			}
			return
		}
	}

	writeError(w, http.StatusNotFound, "File not found")
}

// audioDirs is the fixed probe list for artifact lookup.
func (h *APIHandler) audioDirs() []string {
	return []string{
		h.cfg.OutputDir,
		filepath.Join(h.cfg.UploadDir, "seeds"),
	}
}
