package audio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"ScoreFM/logger"
)

// ToolChain implements Processor with fluidsynth and ffmpeg.
type ToolChain struct {
	fluidsynthPath string
	ffmpegPath     string
}

// NewToolChain creates a ToolChain around the given tool binaries.
func NewToolChain(fluidsynthPath, ffmpegPath string) *ToolChain {
	return &ToolChain{fluidsynthPath: fluidsynthPath, ffmpegPath: ffmpegPath}
}

// Synthesize renders MIDI to WAV through fluidsynth. A partially
// written WAV is removed on failure.
func (t *ToolChain) Synthesize(midiPath, soundfontPath string) (string, error) {
	wavPath := strings.TrimSuffix(midiPath, ".mid") + ".wav"

	args := []string{
		"-ni",
		soundfontPath,
		midiPath,
		"-F", wavPath,
		"-r", "44100",
	}

	cmd := exec.Command(t.fluidsynthPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("executing fluidsynth",
		logger.String("midi", midiPath),
		logger.String("soundfont", soundfontPath))

	if err := cmd.Run(); err != nil {
		os.Remove(wavPath)
		return "", fmt.Errorf("%w: fluidsynth on %s: %v\nstderr: %s",
			ErrSynthesisFailed, midiPath, err, stderr.String())
	}
	if _, err := os.Stat(wavPath); err != nil {
		return "", fmt.Errorf("%w: fluidsynth exited cleanly but %s was not produced",
			ErrSynthesisFailed, wavPath)
	}
	return wavPath, nil
}

// Transcode converts an audio file with ffmpeg. A partially written
// output is removed on failure.
func (t *ToolChain) Transcode(inputPath, format string) (string, error) {
	ext := filepath.Ext(inputPath)
	outPath := strings.TrimSuffix(inputPath, ext) + "." + format

	args := []string{"-y", "-i", inputPath, outPath}

	cmd := exec.Command(t.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("executing ffmpeg",
		logger.String("input", inputPath),
		logger.String("format", format))

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("%w: ffmpeg %s -> %s: %v\nstderr: %s",
			ErrTranscodeFailed, inputPath, format, err, stderr.String())
	}
	return outPath, nil
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetAudioDuration uses ffprobe to get the duration of an audio file in seconds.
func (t *ToolChain) GetAudioDuration(inputFile string) (float32, error) {
	ffprobePath := strings.Replace(t.ffmpegPath, "ffmpeg", "ffprobe", 1)

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputFile,
	}

	cmd := exec.Command(ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", inputFile, err, stderr.String())
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", inputFile, err)
	}

	if probeData.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output for %s", inputFile)
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q for %s: %w", probeData.Format.Duration, inputFile, err)
	}

	return float32(duration), nil
}
