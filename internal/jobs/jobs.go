// Package jobs defines the job record and its lifecycle.
package jobs

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// CanTransition reports whether moving from one status to another is a
// legal forward edge. The lifecycle is strictly monotonic: queued may
// only become running, running only succeeded or failed, and the
// terminal states never change.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusRunning
	case StatusRunning:
		return to == StatusSucceeded || to == StatusFailed
	default:
		return false
	}
}

// Terminal reports whether a status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Result is the outcome of a successful job.
type Result struct {
	OutputURL   string `json:"outputUrl,omitempty"`
	DurationSec int    `json:"durationSec,omitempty"`
}

// Links carries hypermedia links for a job record.
type Links struct {
	Self string `json:"self"`
}

// Job is a single render job record as stored and as returned over HTTP.
type Job struct {
	JobID       string         `json:"jobId"`
	ClientJobID string         `json:"clientJobId,omitempty"`
	Template    string         `json:"template"`
	Params      map[string]any `json:"params,omitempty"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	FinishedAt  *time.Time     `json:"finishedAt,omitempty"`
	Error       string         `json:"error,omitempty"`
	Result      *Result        `json:"result,omitempty"`
	Links       Links          `json:"links"`
}

// New creates a queued job record with a fresh identifier.
func New(template, clientJobID string, params map[string]any) *Job {
	id := NewJobID()
	return &Job{
		JobID:       id,
		ClientJobID: clientJobID,
		Template:    template,
		Params:      params,
		Status:      StatusQueued,
		CreatedAt:   time.Now().UTC(),
		Links:       Links{Self: "/v1/jobs/" + id},
	}
}

// NewJobID returns a fresh unique job identifier.
func NewJobID() string {
	b := make([]byte, 20)
	_, _ = rand.Read(b)
	return "job_" + hex.EncodeToString(b)
}

// Clone returns a deep copy of the job. Stores hand out clones so that
// callers never mutate shared state.
func (j *Job) Clone() *Job {
	c := *j
	if j.Params != nil {
		c.Params = make(map[string]any, len(j.Params))
		for k, v := range j.Params {
			c.Params[k] = v
		}
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	return &c
}

// MarkRunning transitions the job to running, stamping startedAt once.
func (j *Job) MarkRunning(now time.Time) bool {
	if !CanTransition(j.Status, StatusRunning) {
		return false
	}
	j.Status = StatusRunning
	if j.StartedAt == nil {
		t := now.UTC()
		j.StartedAt = &t
	}
	return true
}

// MarkSucceeded transitions the job to succeeded with its result.
func (j *Job) MarkSucceeded(now time.Time, result *Result) bool {
	if !CanTransition(j.Status, StatusSucceeded) {
		return false
	}
	j.Status = StatusSucceeded
	j.Result = result
	if j.FinishedAt == nil {
		t := now.UTC()
		j.FinishedAt = &t
	}
	return true
}

// MarkFailed transitions the job to failed with an error message.
func (j *Job) MarkFailed(now time.Time, msg string) bool {
	if !CanTransition(j.Status, StatusFailed) {
		return false
	}
	j.Status = StatusFailed
	j.Error = msg
	if j.FinishedAt == nil {
		t := now.UTC()
		j.FinishedAt = &t
	}
	return true
}
