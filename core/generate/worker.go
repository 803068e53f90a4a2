package generate

import (
	"context"
	"os"

	"ScoreFM/logger"
	"ScoreFM/model"
	"ScoreFM/task"
)

// defaultPrompt stands in when the caller sent an empty description.
const defaultPrompt = "instrumental background music"

// Generator is the narrow contract the worker drives. *Client is the
// production implementation.
type Generator interface {
	Generate(ctx context.Context, in Input) (string, error)
}

// Request carries one generation task's inputs.
type Request struct {
	TaskID   string
	Prompt   string
	Genres   []string
	Moods    []string
	Duration int
	SeedPath string // optional temp file; removed when the worker is done
}

// Worker runs generation tasks to completion and records the outcome
// in the task registry. Each task is executed exactly once.
type Worker struct {
	client   Generator
	registry *task.Registry
}

// NewWorker creates a generation worker.
func NewWorker(client Generator, registry *task.Registry) *Worker {
	return &Worker{client: client, registry: registry}
}

// Run executes one generation request. It always removes the seed temp
// file, whether the task succeeds or fails.
func (w *Worker) Run(ctx context.Context, req Request) {
	defer func() {
		if req.SeedPath != "" {
			if err := os.Remove(req.SeedPath); err != nil && !os.IsNotExist(err) {
				logger.Warn("failed to remove seed audio file",
					logger.String("path", req.SeedPath),
					logger.ErrorField(err))
			}
		}
	}()

	w.registry.Run(req.TaskID)

	prompt := req.Prompt
	if prompt == "" {
		prompt = defaultPrompt
	}

	in := Input{Prompt: prompt, Duration: req.Duration}
	if req.SeedPath != "" {
		data, err := os.ReadFile(req.SeedPath)
		if err != nil {
			w.registry.Fail(req.TaskID, "reading seed audio: "+err.Error())
			return
		}
		in.SeedAudio = data
	}

	audioURL, err := w.client.Generate(ctx, in)
	if err != nil {
		logger.Error("generation task failed",
			logger.String("taskId", req.TaskID),
			logger.ErrorField(err))
		w.registry.Fail(req.TaskID, err.Error())
		return
	}

	track := model.NewTrack(audioURL, "AI_Generated_Track", req.Genres, req.Moods, req.Duration, model.TrackTypeGenerated)
	w.registry.Succeed(req.TaskID, track)
	logger.Info("generation task succeeded",
		logger.String("taskId", req.TaskID),
		logger.String("audioUrl", audioURL))
}
