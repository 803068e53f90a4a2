package server

import (
	"net/http"
	"time"

	"ScoreFM/logger"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamLimit bounds how long one status stream may stay open.
const streamLimit = 10 * time.Minute

// TaskStreamHandler pushes task status snapshots over a WebSocket until
// the task reaches a terminal state, sparing clients the polling loop.
func (h *APIHandler) TaskStreamHandler(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		taskID = r.URL.Query().Get("task_id")
	}
	if _, ok := h.registry.Get(taskID); !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"status": "failed",
			"error":  "Unknown task",
		})
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(streamLimit)

	var lastStatus string
	for {
		snap, ok := h.registry.Get(taskID)
		if !ok {
			// Evicted mid-stream.
			return
		}

		if string(snap.Status) != lastStatus {
			lastStatus = string(snap.Status)
			payload := map[string]interface{}{
				"taskId": taskID,
				"status": lastStatus,
			}
			if snap.Result != nil {
				payload["result"] = snap.Result
				payload["audioUrl"] = snap.Result.AudioURL
			}
			if snap.Error != "" {
				payload["error"] = snap.Error
			}
			if err := conn.WriteJSON(payload); err != nil {
				logger.Warn("websocket write failed", logger.ErrorField(err))
				return
			}
		}

		if snap.Status.Terminal() {
			return
		}

		select {
		case <-ticker.C:
		case <-deadline:
			return
		case <-r.Context().Done():
			return
		}
	}
}
