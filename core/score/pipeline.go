package score

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"ScoreFM/core/audio"
	"ScoreFM/logger"
	"ScoreFM/model"
	"ScoreFM/storage"

	"github.com/google/uuid"
)

// defaultGenre classifies every score conversion.
const defaultGenre = "Classical"

// Result is a finished conversion: the Track plus the filename the
// audio handler serves it under.
type Result struct {
	Track    *model.Track
	Filename string
}

// Pipeline converts one uploaded PDF into one playable audio file.
// Stages run strictly in order, each gated on its predecessor, and the
// per-task work directory is removed on every exit path.
type Pipeline struct {
	recognizer Recognizer
	processor  audio.Processor
	store      *storage.ArtifactStore // optional mirror, may be nil

	workRoot   string
	outputRoot string
	soundfont  string
}

// NewPipeline wires a conversion pipeline.
func NewPipeline(recognizer Recognizer, processor audio.Processor, store *storage.ArtifactStore, workRoot, outputRoot, soundfont string) *Pipeline {
	return &Pipeline{
		recognizer: recognizer,
		processor:  processor,
		store:      store,
		workRoot:   workRoot,
		outputRoot: outputRoot,
		soundfont:  soundfont,
	}
}

// Convert runs the full chain: persist upload, recognize, parse,
// render MIDI, synthesize, optionally transcode, publish the final
// artifact. format is "wav" or "mp3". No partial Track is ever
// returned: any stage failure aborts the rest and only cleanup runs.
func (p *Pipeline) Convert(ctx context.Context, upload io.Reader, originalName, format string) (*Result, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	workDir := filepath.Join(p.workRoot, id)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	// The uploaded PDF and every intermediate artifact live in workDir;
	// the final audio is moved out before this runs.
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("work directory cleanup failed",
				logger.String("dir", workDir), logger.ErrorField(err))
		}
	}()

	pdfPath := filepath.Join(workDir, id+".pdf")
	if err := saveStream(upload, pdfPath); err != nil {
		return nil, fmt.Errorf("persisting upload: %w", err)
	}

	notationPath, err := p.recognizer.Recognize(ctx, pdfPath, workDir)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseFile(notationPath)
	if err != nil {
		return nil, fmt.Errorf("parsing recognized score: %w", err)
	}

	// Repeat expansion is best-effort and never fatal.
	playable := parsed
	if expanded, err := parsed.ExpandRepeats(); err != nil {
		logger.Warn("repeat expansion failed, using unexpanded score",
			logger.String("taskDir", workDir), logger.ErrorField(err))
	} else {
		playable = expanded
	}

	midiPath := filepath.Join(workDir, id+".mid")
	if err := RenderMIDI(playable, midiPath); err != nil {
		return nil, err
	}

	wavPath, err := p.processor.Synthesize(midiPath, p.soundfont)
	if err != nil {
		return nil, err
	}

	finalPath := wavPath
	if format == "mp3" {
		finalPath, err = p.processor.Transcode(wavPath, "mp3")
		if err != nil {
			return nil, err
		}
	}

	filename := filepath.Base(finalPath)
	published := filepath.Join(p.outputRoot, filename)
	if err := moveFile(finalPath, published); err != nil {
		return nil, fmt.Errorf("publishing audio artifact: %w", err)
	}

	if p.store != nil {
		if err := p.store.UploadAudio(ctx, published, filename); err != nil {
			// Mirror failures never fail the conversion.
			logger.Warn("artifact mirror failed", logger.ErrorField(err))
		}
	}

	// The rendered artifact is the source of truth for duration; the
	// score-derived value is the fallback when probing fails.
	duration := playable.DurationSeconds()
	if measured, err := p.processor.GetAudioDuration(published); err != nil {
		logger.Warn("duration probe failed, using score-derived duration",
			logger.String("file", filename), logger.ErrorField(err))
	} else if measured > 0 {
		duration = int(math.Round(float64(measured)))
	}

	title := strings.TrimSuffix(originalName, filepath.Ext(originalName))
	if title == "" {
		title = "Score"
	}
	track := model.NewTrack(
		"/api/audio/"+filename,
		title,
		[]string{defaultGenre},
		nil,
		duration,
		model.TrackTypeScoreAudio,
	)

	logger.Info("score conversion finished",
		logger.String("file", filename),
		logger.Int("duration", track.Duration))
	return &Result{Track: track, Filename: filename}, nil
}

// saveStream writes an upload to disk.
func saveStream(r io.Reader, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, r)
	return err
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
