package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"looprender/internal/config"
	"looprender/internal/renderjob"
)

// stubFFmpeg writes a script that creates the output file (the last
// argument) instead of transcoding.
func stubFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub ffmpeg script requires a POSIX shell")
	}

	bin := filepath.Join(t.TempDir(), "ffmpeg.sh")
	script := "#!/bin/sh\n" +
		"for last in \"$@\"; do :; done\n" +
		"head -c 2048 /dev/zero > \"$last\"\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin
}

func TestPipelineRun(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/video.mp4":
			w.Write(mp4Bytes(4096))
		case "/audio.mp3":
			w.Write(mp3Bytes(4096))
		default:
			http.NotFound(w, r)
		}
	}))
	defer media.Close()

	var uploads int
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			uploads++
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer sink.Close()

	tempParent := t.TempDir()
	cfg := &config.Worker{
		DownloadTimeout: 10 * time.Second,
		UploadTimeout:   10 * time.Second,
		TempDir:         tempParent,
		FFmpegBin:       stubFFmpeg(t),
	}

	payload := renderjob.New("job_test", 10, media.URL+"/video.mp4", media.URL+"/audio.mp3", sink.URL+"/out.mp4")

	p := NewPipeline(cfg, testLogger())
	require.NoError(t, p.Run(context.Background(), payload))

	assert.Equal(t, 1, uploads, "output must be uploaded exactly once")

	// Work dir is cleaned up afterwards.
	entries, err := os.ReadDir(tempParent)
	require.NoError(t, err)
	assert.Empty(t, entries, "expected work dir to be removed")
}

func TestPipelineSmallVideoNeverReachesFFmpeg(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub ffmpeg script requires a POSIX shell")
	}

	// A valid-looking but undersized video must abort before any
	// transcoding; the sentinel script records whether it ever ran.
	marker := filepath.Join(t.TempDir(), "ffmpeg-invoked")
	bin := filepath.Join(t.TempDir(), "ffmpeg.sh")
	script := "#!/bin/sh\ntouch " + marker + "\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/video.mp4":
			w.Write(mp4Bytes(512))
		case "/audio.mp3":
			w.Write(mp3Bytes(4096))
		default:
			http.NotFound(w, r)
		}
	}))
	defer media.Close()

	cfg := &config.Worker{
		DownloadTimeout: 10 * time.Second,
		UploadTimeout:   10 * time.Second,
		TempDir:         t.TempDir(),
		FFmpegBin:       bin,
	}

	payload := renderjob.New("job_test", 10, media.URL+"/video.mp4", media.URL+"/audio.mp3", media.URL+"/out.mp4")

	p := NewPipeline(cfg, testLogger())
	err := p.Run(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below the 1024 byte minimum")

	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "ffmpeg must not be invoked for an undersized input")
}

func TestPipelineCleansUpOnFailure(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer media.Close()

	tempParent := t.TempDir()
	cfg := &config.Worker{
		DownloadTimeout: 10 * time.Second,
		UploadTimeout:   10 * time.Second,
		TempDir:         tempParent,
		FFmpegBin:       "ffmpeg-not-invoked",
	}

	payload := renderjob.New("job_test", 10, media.URL+"/v", media.URL+"/a", media.URL+"/o")

	p := NewPipeline(cfg, testLogger())
	err := p.Run(context.Background(), payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")

	entries, readErr := os.ReadDir(tempParent)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "expected work dir to be removed even on failure")
}
