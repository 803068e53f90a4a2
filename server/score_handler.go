package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"ScoreFM/logger"
)

// ProcessScoreHandler converts an uploaded sheet-music PDF to audio.
// The conversion runs synchronously in the request; a terminal task row
// is still recorded so clients can use the same polling surface for
// both paths.
func (h *APIHandler) ProcessScoreHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "Invalid file format, expected a PDF")
		return
	}

	format := r.FormValue("format")
	switch format {
	case "":
		format = "wav"
	case "wav", "mp3":
	default:
		writeError(w, http.StatusBadRequest, "Unsupported output format: "+format)
		return
	}

	taskID := h.registry.Create()
	h.registry.Run(taskID)

	result, err := h.pipeline.Convert(r.Context(), file, header.Filename, format)
	if err != nil {
		logger.Error("score conversion failed",
			logger.String("taskId", taskID),
			logger.ErrorField(err))
		h.registry.Fail(taskID, err.Error())

		// Adapter errors keep their stage-specific message; a
		// recognition timeout stays distinguishable by its text.
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"taskId": taskID,
			"error":  err.Error(),
		})
		return
	}

	h.registry.Succeed(taskID, result.Track)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"taskId": taskID,
		"file":   result.Filename,
	})
}
