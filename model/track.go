package model

import (
	"time"

	"github.com/google/uuid"
)

// Track type tags.
const (
	TrackTypeGenerated  = "generated"
	TrackTypeScoreAudio = "score-audio"
)

// Track is the client-facing description of a playable audio result.
// A Track is immutable once constructed.
type Track struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Genres    []string `json:"genres"`
	Moods     []string `json:"moods"`
	Duration  int      `json:"duration"` // seconds
	AudioURL  string   `json:"audioUrl"`
	CreatedAt string   `json:"createdAt"` // ISO-8601 UTC
	Type      string   `json:"type"`      // generated | score-audio
}

// NewTrack builds a Track with a fresh id and the current UTC timestamp.
// Nil genre/mood slices become empty so the JSON always carries arrays.
func NewTrack(audioURL, title string, genres, moods []string, duration int, kind string) *Track {
	if genres == nil {
		genres = []string{}
	}
	if moods == nil {
		moods = []string{}
	}
	if duration < 0 {
		duration = 0
	}
	return &Track{
		ID:        uuid.NewString(),
		Title:     title,
		Genres:    genres,
		Moods:     moods,
		Duration:  duration,
		AudioURL:  audioURL,
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Type:      kind,
	}
}
