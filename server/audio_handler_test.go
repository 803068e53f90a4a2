package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// audioGet exercises the handler for an arbitrary filename value, the
// way the router would deliver it as a path variable.
func audioGet(h *APIHandler, filename string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/audio/file", nil)
	req = mux.SetURLVars(req, map[string]string{"filename": filename})
	rec := httptest.NewRecorder()
	h.AudioHandler(rec, req)
	return rec
}

func TestAudio_ServesPublishedArtifact(t *testing.T) {
	h := newTestHandler(t)

	content := []byte("ID3fake-mp3-bytes")
	require.NoError(t, os.WriteFile(filepath.Join(h.cfg.OutputDir, "take.mp3"), content, 0644))

	rec := audioGet(h, "take.mp3")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, content, rec.Body.Bytes())
}

func TestAudio_ServesSeedUpload(t *testing.T) {
	h := newTestHandler(t)

	seedDir := filepath.Join(h.cfg.UploadDir, "seeds")
	require.NoError(t, os.MkdirAll(seedDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(seedDir, "seed.wav"), []byte("RIFFfake"), 0644))

	rec := audioGet(h, "seed.wav")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
}

func TestAudio_UnknownFile(t *testing.T) {
	h := newTestHandler(t)

	rec := audioGet(h, "nope.mp3")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errMsg, _ := decodeBody(t, rec)["error"].(string)
	assert.Contains(t, errMsg, "File not found")
}

func TestAudio_RejectsPathTraversal(t *testing.T) {
	h := newTestHandler(t)

	// A file outside the probe directories must stay unreachable.
	outside := filepath.Join(h.cfg.OutputDir, "..", "secret.mp3")
	require.NoError(t, os.WriteFile(outside, []byte("private"), 0644))

	for _, name := range []string{
		"../secret.mp3",
		"sub/secret.mp3",
		"",
	} {
		rec := audioGet(h, name)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "filename %q", name)
	}
}
