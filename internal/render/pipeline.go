// Package render implements the worker side of a job: download the two
// media inputs, composite them with ffmpeg, upload the result.
package render

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"looprender/internal/config"
	"looprender/internal/pkg/logger"
	"looprender/internal/renderjob"
)

// Pipeline runs one render end to end inside an isolated temp dir.
type Pipeline struct {
	cfg *config.Worker
	log *logger.Logger
}

// NewPipeline creates a pipeline with worker configuration.
func NewPipeline(cfg *config.Worker, log *logger.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, log: log}
}

// Run executes the payload. The temp dir is removed unconditionally,
// success or failure.
func (p *Pipeline) Run(ctx context.Context, payload *renderjob.Payload) error {
	log := p.log.WithJobID(payload.JobID)

	workDir, err := os.MkdirTemp(p.cfg.TempDir, "looprender-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn("failed to remove work dir", "dir", workDir, "error", err.Error())
		}
	}()

	log.Info("render started",
		"duration_sec", payload.Params.DurationSec,
		"video_url", payload.Params.Video.URL,
		"audio_url", payload.Params.Audio.URL,
		"work_dir", workDir,
	)

	videoPath := filepath.Join(workDir, "video_input")
	audioPath := filepath.Join(workDir, "audio_input")
	outPath := filepath.Join(workDir, "out.mp4")

	dl := &Downloader{
		Client: &http.Client{Timeout: p.cfg.DownloadTimeout},
		Log:    log,
	}

	if _, err := dl.Download(ctx, "video", payload.Params.Video.URL, videoPath, SniffVideo); err != nil {
		return err
	}
	if _, err := dl.Download(ctx, "audio", payload.Params.Audio.URL, audioPath, SniffAudio); err != nil {
		return err
	}

	args := BuildFFmpegArgs(videoPath, audioPath, payload.Params.DurationSec, outPath)
	if err := RunFFmpeg(ctx, p.cfg.FFmpegBin, args, log); err != nil {
		return err
	}

	uploadClient := &http.Client{Timeout: p.cfg.UploadTimeout}
	if err := Upload(ctx, uploadClient, payload.Params.Output.Upload.PutURL, outPath, log); err != nil {
		return err
	}

	log.Info("render finished")
	return nil
}
