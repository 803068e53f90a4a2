package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ScoreFM/core/generate"
	"ScoreFM/logger"
	"ScoreFM/task"

	"github.com/google/uuid"
)

// GenerateMusicHandler accepts a generation request as JSON or as a
// multipart form (same fields plus an optional seed audio file), creates
// a queued task and hands it to the worker pool. The client gets the
// task id immediately and polls for the outcome.
func (h *APIHandler) GenerateMusicHandler(w http.ResponseWriter, r *http.Request) {
	var (
		fields   map[string]interface{}
		seedPath string
	)

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
			writeError(w, http.StatusBadRequest, "Failed to parse multipart form: "+err.Error())
			return
		}
		fields = map[string]interface{}{
			"description": r.FormValue("description"),
			"genres":      r.FormValue("genres"),
			"moods":       r.FormValue("moods"),
			"duration":    r.FormValue("duration"),
		}

		if file, header, err := r.FormFile("file"); err == nil {
			defer file.Close()
			path, saveErr := h.saveSeedAudio(file, header.Filename)
			if saveErr != nil {
				writeError(w, http.StatusInternalServerError, "Failed to save seed audio: "+saveErr.Error())
				return
			}
			seedPath = path
		} else if err != http.ErrMissingFile {
			writeError(w, http.StatusBadRequest, "Error processing seed audio: "+err.Error())
			return
		}
	} else {
		// Malformed or empty JSON falls back to defaults, mirroring a
		// lenient body parse.
		fields = map[string]interface{}{}
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil && err != io.EOF {
			fields = map[string]interface{}{}
		}
	}

	prompt, _ := fields["description"].(string)
	req := generate.Request{
		Prompt:   prompt,
		Genres:   asList(fields["genres"]),
		Moods:    asList(fields["moods"]),
		Duration: asDuration(fields["duration"]),
		SeedPath: seedPath,
	}

	taskID := h.registry.Create()
	req.TaskID = taskID

	err := h.pool.Submit(task.Job{
		TaskID: taskID,
		Run: func(ctx context.Context) {
			h.worker.Run(ctx, req)
		},
	})
	if err != nil {
		h.registry.Fail(taskID, err.Error())
		if seedPath != "" {
			os.Remove(seedPath)
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"taskId": taskID})
}

// TaskStatusHandler reports a task's lifecycle state. Unknown ids are a
// client error, answered uniformly as a failed lookup.
func (h *APIHandler) TaskStatusHandler(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		taskID = r.URL.Query().Get("taskId")
	}

	snap, ok := h.registry.Get(taskID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"status": string(task.StatusFailed),
			"error":  "Unknown task",
		})
		return
	}

	payload := map[string]interface{}{
		"taskId": taskID,
		"status": string(snap.Status),
	}
	if snap.Result != nil {
		payload["result"] = snap.Result
		payload["audioUrl"] = snap.Result.AudioURL
	}
	if snap.Error != "" {
		payload["error"] = snap.Error
	}
	writeJSON(w, http.StatusOK, payload)
}

// saveSeedAudio persists an uploaded seed file under a collision-free
// name in the upload directory.
func (h *APIHandler) saveSeedAudio(file io.Reader, originalName string) (string, error) {
	dir := filepath.Join(h.cfg.UploadDir, "seeds")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	safe := filepath.Base(originalName)
	if safe == "" || safe == "." || safe == string(filepath.Separator) {
		safe = "seed.wav"
	}
	path := filepath.Join(dir, strings.ReplaceAll(uuid.NewString(), "-", "")+"_"+safe)

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", err
	}

	logger.Debug("seed audio saved", logger.String("path", path))
	return path, nil
}

// asList coerces a genres/moods field into a string slice. Clients send
// either a JSON array, a JSON-encoded string, or a single value.
func asList(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	case string:
		if val == "" {
			return []string{}
		}
		var decoded []string
		if err := json.Unmarshal([]byte(val), &decoded); err == nil {
			return decoded
		}
		return []string{val}
	default:
		return []string{}
	}
}

// asDuration coerces the duration field, defaulting to 10 seconds.
func asDuration(v interface{}) int {
	switch val := v.(type) {
	case float64:
		if val > 0 {
			return int(val)
		}
	case string:
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return 10
}
