package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"looprender/internal/jobs"
	"looprender/internal/pkg/logger"
	"looprender/internal/renderjob"
)

// Signer issues presigned URLs for object keys.
type Signer interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// SubprocessRunner renders for real: it presigns the job's object keys,
// hands the versioned payload to the worker binary via PAYLOAD_B64 and
// reconciles the process outcome into a result.
type SubprocessRunner struct {
	Signer    Signer
	WorkerBin string
	// Expiry is the lifetime of the presigned URLs issued per job.
	Expiry time.Duration
	// Timeout bounds one worker invocation end to end.
	Timeout time.Duration
	Log     *logger.Logger
}

type workerOutput struct {
	OK bool `json:"ok"`
}

func (r *SubprocessRunner) Run(ctx context.Context, job *jobs.Job) (*jobs.Result, error) {
	durationSec := intParam(job.Params, "durationSec")
	if durationSec <= 0 {
		return nil, fmt.Errorf("params.durationSec must be a positive integer")
	}

	videoKey := stringParam(job.Params, "videoKey")
	audioKey := stringParam(job.Params, "audioKey")
	outputKey := stringParam(job.Params, "outputKey")
	if videoKey == "" || audioKey == "" || outputKey == "" {
		return nil, fmt.Errorf("params must carry videoKey, audioKey and outputKey")
	}

	expiry := r.Expiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	videoURL, err := r.Signer.PresignGet(ctx, videoKey, expiry)
	if err != nil {
		return nil, fmt.Errorf("presign video: %w", err)
	}
	audioURL, err := r.Signer.PresignGet(ctx, audioKey, expiry)
	if err != nil {
		return nil, fmt.Errorf("presign audio: %w", err)
	}
	putURL, err := r.Signer.PresignPut(ctx, outputKey, expiry)
	if err != nil {
		return nil, fmt.Errorf("presign output: %w", err)
	}

	payload := renderjob.New(job.JobID, durationSec, videoURL, audioURL, putURL)
	encoded, err := payload.EncodeBase64()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.WorkerBin)
	cmd.Env = append(cmd.Environ(), "PAYLOAD_B64="+encoded)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if r.Log != nil {
		r.Log.WithJobID(job.JobID).Info("invoking render worker", "bin", r.WorkerBin, "duration_sec", durationSec)
	}

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("worker failed: %v: %s", err, truncate(stderr.String(), 800))
	}

	var out workerOutput
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &out); err != nil || !out.OK {
		return nil, fmt.Errorf("worker did not confirm success: %s", truncate(stdout.String(), 200))
	}

	// Hand back a readable URL for the rendered object, not the spent
	// upload URL.
	outputURL, err := r.Signer.PresignGet(ctx, outputKey, expiry)
	if err != nil {
		return nil, fmt.Errorf("presign result: %w", err)
	}

	return &jobs.Result{OutputURL: outputURL, DurationSec: durationSec}, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
