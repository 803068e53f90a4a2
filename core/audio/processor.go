package audio

import "errors"

// Adapter failure modes for the render tool chain.
var (
	ErrSynthesisFailed = errors.New("waveform synthesis failed")
	ErrTranscodeFailed = errors.New("audio transcode failed")
)

// Processor defines an interface for audio processing operations.
type Processor interface {
	// Synthesize renders a MIDI file to a WAV next to it using the
	// given instrument soundfont and returns the WAV path.
	Synthesize(midiPath, soundfontPath string) (string, error)

	// Transcode converts an audio file to the target format (e.g.
	// "mp3") and returns the new path.
	Transcode(inputPath, format string) (string, error)

	// GetAudioDuration returns the duration of an audio file in seconds.
	GetAudioDuration(inputFile string) (float32, error)
}
