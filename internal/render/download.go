package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"looprender/internal/pkg/logger"
)

const (
	// downloadChunkSize is the copy buffer for streaming media to disk.
	downloadChunkSize = 1 << 20
	// minMediaSize rejects obviously-broken downloads (error pages,
	// truncated objects) before ffmpeg ever sees them.
	minMediaSize = 1024
)

// Sniffer validates the leading bytes of a downloaded file.
type Sniffer func(head []byte) error

// Downloader streams presigned-GET media to local files.
type Downloader struct {
	Client *http.Client
	Log    *logger.Logger
}

// Download fetches url into dest, streaming in 1 MiB chunks, and
// validates both the size and the content via sniff. Error messages
// carry enough response diagnostics to debug a bad presigned URL from
// the worker's stderr alone.
func (d *Downloader) Download(ctx context.Context, label, url, dest string, sniff Sniffer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: build request: %w", label, err)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: request failed: %w", label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%s: unexpected status %d (content-type %q): %s",
			label, resp.StatusCode, resp.Header.Get("Content-Type"), string(body))
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("%s: create %s: %w", label, dest, err)
	}
	defer out.Close()

	// Read the head separately so it can be sniffed before the bulk copy.
	head := make([]byte, sniffHeadSize)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, fmt.Errorf("%s: read head: %w", label, err)
	}
	head = head[:n]

	if sniff != nil {
		if err := sniff(head); err != nil {
			return 0, fmt.Errorf("%s: content does not look like media: %v (status %d, content-type %q, content-length %q, first bytes %q)",
				label, err, resp.StatusCode, resp.Header.Get("Content-Type"), resp.Header.Get("Content-Length"), head)
		}
	}

	if _, err := out.Write(head); err != nil {
		return 0, fmt.Errorf("%s: write %s: %w", label, dest, err)
	}

	buf := make([]byte, downloadChunkSize)
	copied, err := io.CopyBuffer(out, resp.Body, buf)
	if err != nil {
		return 0, fmt.Errorf("%s: stream body: %w", label, err)
	}

	size := int64(len(head)) + copied
	if size < minMediaSize {
		return 0, fmt.Errorf("%s: downloaded only %d bytes, below the %d byte minimum (status %d, content-type %q)",
			label, size, minMediaSize, resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	if d.Log != nil {
		d.Log.Info("download complete", "input", label, "bytes", size, "dest", dest)
	}
	return size, nil
}
