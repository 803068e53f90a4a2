package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAudioURL_Shapes(t *testing.T) {
	const url = "https://cdn.example.com/track.mp3"

	tests := []struct {
		name  string
		input any
		want  string
		found bool
	}{
		{
			name:  "plain URL string",
			input: url,
			want:  url,
			found: true,
		},
		{
			name:  "list containing a URL",
			input: []any{42, "not-a-url", url},
			want:  url,
			found: true,
		},
		{
			name:  "audioUrl key",
			input: map[string]any{"audioUrl": url},
			want:  url,
			found: true,
		},
		{
			name:  "audio_url key",
			input: map[string]any{"audio_url": url},
			want:  url,
			found: true,
		},
		{
			name:  "url key",
			input: map[string]any{"url": url},
			want:  url,
			found: true,
		},
		{
			name:  "audio key",
			input: map[string]any{"audio": url},
			want:  url,
			found: true,
		},
		{
			name:  "output key holding a list",
			input: map[string]any{"output": []any{url}},
			want:  url,
			found: true,
		},
		{
			name: "files list with url entries",
			input: map[string]any{
				"files": []any{
					map[string]any{"name": "a"},
					map[string]any{"url": url},
				},
			},
			want:  url,
			found: true,
		},
		{
			name:  "files list with direct URL value",
			input: map[string]any{"files": []any{url}},
			want:  url,
			found: true,
		},
		{
			name: "doubly nested result/data wrapper",
			input: map[string]any{
				"result": map[string]any{
					"data": map[string]any{"audioUrl": url},
				},
			},
			want:  url,
			found: true,
		},
		{
			name:  "prediction wrapper",
			input: map[string]any{"prediction": map[string]any{"url": url}},
			want:  url,
			found: true,
		},
		{
			name:  "no candidate keys and no wrapper",
			input: map[string]any{"status": "done", "meta": map[string]any{"id": "x"}},
			found: false,
		},
		{
			name:  "non-http string",
			input: "ftp://example.com/a.mp3",
			found: false,
		},
		{
			name:  "nil input",
			input: nil,
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAudioURL(tt.input)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAudioURL_KeyPriority(t *testing.T) {
	got, ok := ExtractAudioURL(map[string]any{
		"url":      "https://b.example.com/second.mp3",
		"audioUrl": "https://a.example.com/first.mp3",
	})
	assert.True(t, ok)
	assert.Equal(t, "https://a.example.com/first.mp3", got)
}

func TestExtractAudioURL_DepthGuard(t *testing.T) {
	// Nest wrappers well past the recursion bound.
	v := any(map[string]any{"audioUrl": "https://deep.example.com/a.mp3"})
	for i := 0; i < maxDepth+10; i++ {
		v = map[string]any{"result": v}
	}

	_, ok := ExtractAudioURL(v)
	assert.False(t, ok)
}

func TestExtractAudioURL_ShallowWrapperStillFound(t *testing.T) {
	v := any(map[string]any{"audioUrl": "https://shallow.example.com/a.mp3"})
	for i := 0; i < 5; i++ {
		v = map[string]any{"result": v}
	}

	got, ok := ExtractAudioURL(v)
	assert.True(t, ok)
	assert.Equal(t, "https://shallow.example.com/a.mp3", got)
}
