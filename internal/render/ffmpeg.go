package render

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"looprender/internal/pkg/logger"
)

// BuildFFmpegArgs assembles the composite command: loop both inputs
// indefinitely, cut at durationSec, H.264 + AAC, faststart MP4.
func BuildFFmpegArgs(videoPath, audioPath string, durationSec int, outPath string) []string {
	return []string{
		"-hide_banner",
		"-y",
		"-stream_loop", "-1",
		"-i", videoPath,
		"-stream_loop", "-1",
		"-i", audioPath,
		"-t", strconv.Itoa(durationSec),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		outPath,
	}
}

// RunFFmpeg invokes ffmpeg and returns an error carrying the tail of
// its combined output on a non-zero exit.
func RunFFmpeg(ctx context.Context, bin string, args []string, log *logger.Logger) error {
	if bin == "" {
		bin = "ffmpeg"
	}

	if log != nil {
		log.Info("running ffmpeg", "bin", bin, "args", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %v: %s", err, tail(string(output), 800))
	}
	return nil
}

// tail keeps the last n bytes of s, where ffmpeg puts its error.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
