package score

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ScoreFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecognizer writes a canned MusicXML export like the real engine
// would, or fails with a configured error.
type fakeRecognizer struct {
	err error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, pdfPath, outputDir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("%w: uploaded PDF missing: %v", ErrRecognitionFailed, err)
	}
	out := filepath.Join(outputDir, "notation.musicxml")
	if err := os.WriteFile(out, []byte(simpleDoc), 0644); err != nil {
		return "", err
	}
	return out, nil
}

// fakeProcessor fabricates synthesis/transcode outputs on disk. The
// zero value reports a zero measured duration, so conversions fall back
// to the score-derived value.
type fakeProcessor struct {
	failSynthesis bool
	duration      float32
	durationErr   error
}

func (f *fakeProcessor) Synthesize(midiPath, soundfontPath string) (string, error) {
	if f.failSynthesis {
		return "", errors.New("waveform synthesis failed: fluidsynth exploded")
	}
	wav := strings.TrimSuffix(midiPath, ".mid") + ".wav"
	return wav, os.WriteFile(wav, []byte("RIFFfake"), 0644)
}

func (f *fakeProcessor) Transcode(inputPath, format string) (string, error) {
	out := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "." + format
	return out, os.WriteFile(out, []byte("ID3fake"), 0644)
}

func (f *fakeProcessor) GetAudioDuration(inputFile string) (float32, error) {
	return f.duration, f.durationErr
}

func newTestPipeline(t *testing.T, rec Recognizer, proc *fakeProcessor) (*Pipeline, string, string) {
	t.Helper()
	workRoot := t.TempDir()
	outputRoot := t.TempDir()
	p := NewPipeline(rec, proc, nil, workRoot, outputRoot, "/tmp/fake.sf2")
	return p, workRoot, outputRoot
}

func TestPipeline_ConvertSuccess(t *testing.T) {
	p, workRoot, outputRoot := newTestPipeline(t, &fakeRecognizer{}, &fakeProcessor{})

	result, err := p.Convert(context.Background(), strings.NewReader("%PDF-fake"), "sonata.pdf", "mp3")
	require.NoError(t, err)
	require.NotNil(t, result.Track)

	assert.Equal(t, "sonata", result.Track.Title)
	assert.Equal(t, []string{"Classical"}, result.Track.Genres)
	assert.Equal(t, model.TrackTypeScoreAudio, result.Track.Type)
	assert.Equal(t, 4, result.Track.Duration)
	assert.Equal(t, "/api/audio/"+result.Filename, result.Track.AudioURL)
	assert.True(t, strings.HasSuffix(result.Filename, ".mp3"))

	// Final artifact is published; everything else is gone.
	assert.FileExists(t, filepath.Join(outputRoot, result.Filename))
	entries, err := os.ReadDir(workRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "work directory must be cleaned up")
}

func TestPipeline_ConvertWavDefault(t *testing.T) {
	p, _, outputRoot := newTestPipeline(t, &fakeRecognizer{}, &fakeProcessor{})

	result, err := p.Convert(context.Background(), strings.NewReader("%PDF-fake"), "menuet.pdf", "wav")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(result.Filename, ".wav"))
	assert.FileExists(t, filepath.Join(outputRoot, result.Filename))
}

func TestPipeline_MeasuredDurationPreferred(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeRecognizer{}, &fakeProcessor{duration: 7.4})

	result, err := p.Convert(context.Background(), strings.NewReader("%PDF-fake"), "sonata.pdf", "wav")
	require.NoError(t, err)

	// The probed artifact length wins over the score-derived 4 seconds.
	assert.Equal(t, 7, result.Track.Duration)
}

func TestPipeline_DurationProbeFailureFallsBack(t *testing.T) {
	proc := &fakeProcessor{durationErr: errors.New("ffprobe not installed")}
	p, _, _ := newTestPipeline(t, &fakeRecognizer{}, proc)

	result, err := p.Convert(context.Background(), strings.NewReader("%PDF-fake"), "sonata.pdf", "wav")
	require.NoError(t, err)

	// A failed probe never fails the conversion.
	assert.Equal(t, 4, result.Track.Duration)
}

func TestPipeline_CleanupOnFailure(t *testing.T) {
	p, workRoot, outputRoot := newTestPipeline(t, &fakeRecognizer{}, &fakeProcessor{failSynthesis: true})

	_, err := p.Convert(context.Background(), strings.NewReader("%PDF-fake"), "broken.pdf", "wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesis")

	entries, readErr := os.ReadDir(workRoot)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "work directory must be cleaned up on failure too")

	out, readErr := os.ReadDir(outputRoot)
	require.NoError(t, readErr)
	assert.Empty(t, out, "no artifact is published on failure")
}

func TestPipeline_RecognitionTimeoutMessage(t *testing.T) {
	rec := &fakeRecognizer{err: fmt.Errorf("%w (limit 2m0s)", ErrRecognitionTimeout)}
	p, _, _ := newTestPipeline(t, rec, &fakeProcessor{})

	_, err := p.Convert(context.Background(), strings.NewReader("%PDF-fake"), "slow.pdf", "wav")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecognitionTimeout)
	assert.Contains(t, err.Error(), "took too long")
}

func TestPipeline_RecognitionFailurePropagates(t *testing.T) {
	rec := &fakeRecognizer{err: fmt.Errorf("%w: exit status 1\nstderr: no staves found", ErrRecognitionFailed)}
	p, _, _ := newTestPipeline(t, rec, &fakeProcessor{})

	_, err := p.Convert(context.Background(), strings.NewReader("%PDF-fake"), "scan.pdf", "wav")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecognitionFailed)
	assert.Contains(t, err.Error(), "no staves found")
}
