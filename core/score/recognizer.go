package score

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"ScoreFM/logger"

	"github.com/fsnotify/fsnotify"
)

var (
	// ErrRecognitionTimeout means the recognizer exceeded its
	// wall-clock bound.
	ErrRecognitionTimeout = errors.New("score recognition took too long")

	// ErrRecognitionFailed covers non-zero exits and runs that exit
	// cleanly without producing the expected notation file.
	ErrRecognitionFailed = errors.New("score recognition failed")
)

// Recognizer turns a scanned PDF into a machine-readable notation file.
type Recognizer interface {
	Recognize(ctx context.Context, pdfPath, outputDir string) (string, error)
}

// AudiverisRecognizer shells out to the Audiveris batch OMR engine.
type AudiverisRecognizer struct {
	javaPath string
	appDir   string // directory holding the Audiveris jars
	timeout  time.Duration
}

// NewAudiverisRecognizer creates the adapter. timeout bounds each
// recognition run.
func NewAudiverisRecognizer(javaPath, appDir string, timeout time.Duration) *AudiverisRecognizer {
	return &AudiverisRecognizer{javaPath: javaPath, appDir: appDir, timeout: timeout}
}

// outputGrace is how long we keep waiting for the expected output file
// after a clean exit; the engine flushes exports late in its run.
const outputGrace = 3 * time.Second

// Recognize runs the engine on pdfPath and returns the path of the
// exported MusicXML. A zero exit code does not guarantee the output
// exists; the file itself is the success condition.
func (r *AudiverisRecognizer) Recognize(ctx context.Context, pdfPath, outputDir string) (string, error) {
	classpath, err := r.classpath()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}

	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	expected := filepath.Join(outputDir, base+".musicxml")

	// Watch the output directory so we notice the export the moment it
	// lands, instead of sampling the filesystem.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("%w: creating watcher: %v", ErrRecognitionFailed, err)
	}
	defer watcher.Close()
	if err := watcher.Add(outputDir); err != nil {
		return "", fmt.Errorf("%w: watching %s: %v", ErrRecognitionFailed, outputDir, err)
	}

	appeared := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && event.Name == expected {
					select {
					case appeared <- struct{}{}:
					default:
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("recognizer output watcher error", logger.ErrorField(err))
			}
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{
		"-cp", classpath,
		"-Djava.awt.headless=true",
		"-Xmx2g",
		"-Duser.language=en",
		"-Duser.country=US",
		"org.audiveris.omr.Main",
		"-batch",
		"-export",
		"-output", outputDir,
		pdfPath,
	}
	cmd := exec.CommandContext(runCtx, r.javaPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Info("running score recognition",
		logger.String("pdf", pdfPath),
		logger.Duration("timeout", r.timeout))

	runErr := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w (limit %s)", ErrRecognitionTimeout, r.timeout)
	}
	if runErr != nil {
		return "", fmt.Errorf("%w: %v\nstdout: %s\nstderr: %s",
			ErrRecognitionFailed, runErr, stdout.String(), stderr.String())
	}

	if _, err := os.Stat(expected); err == nil {
		return expected, nil
	}

	// Clean exit but no file yet; give the watcher a short grace.
	select {
	case <-appeared:
		return expected, nil
	case <-time.After(outputGrace):
	case <-ctx.Done():
	}
	if _, err := os.Stat(expected); err == nil {
		return expected, nil
	}

	return "", fmt.Errorf("%w: engine exited cleanly but %s was not produced\nstdout: %s\nstderr: %s",
		ErrRecognitionFailed, filepath.Base(expected), stdout.String(), stderr.String())
}

// classpath joins every jar in the install directory.
func (r *AudiverisRecognizer) classpath() (string, error) {
	entries, err := os.ReadDir(r.appDir)
	if err != nil {
		return "", fmt.Errorf("reading Audiveris directory %s: %v", r.appDir, err)
	}

	var jars []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jar") {
			jars = append(jars, filepath.Join(r.appDir, e.Name()))
		}
	}
	if len(jars) == 0 {
		return "", fmt.Errorf("no jars found in %s", r.appDir)
	}
	return strings.Join(jars, string(os.PathListSeparator)), nil
}
