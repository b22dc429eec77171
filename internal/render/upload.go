package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"looprender/internal/pkg/logger"
)

// Upload PUTs the rendered file to a presigned URL with the MP4
// content type. The body is streamed from disk with an explicit
// Content-Length so S3-compatible endpoints accept it unsigned-chunked.
func Upload(ctx context.Context, client *http.Client, putURL, filePath string, log *logger.Logger) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filePath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, f)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "video/mp4")
	req.ContentLength = info.Size()

	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload rejected: status %d: %s", resp.StatusCode, string(body))
	}

	if log != nil {
		log.Info("upload complete", "bytes", info.Size(), "status", resp.StatusCode)
	}
	return nil
}
