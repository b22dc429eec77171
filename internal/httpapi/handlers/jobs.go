package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"looprender/internal/httpkit"
	"looprender/internal/jobs"
	"looprender/internal/pkg/errors"
)

type submitJobRequest struct {
	Template    string         `json:"template"`
	ClientJobID string         `json:"clientJobId"`
	Params      map[string]any `json:"params"`
}

// SubmitJob accepts a render job, stores it queued and dispatches it
// for asynchronous execution. Resubmitting a known clientJobId returns
// the existing record with the same 202.
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteError(w, errors.Validation("invalid JSON body"))
		return
	}

	if req.Template == "" {
		httpkit.WriteError(w, errors.ValidationField("template", "template is required"))
		return
	}

	ctx := r.Context()

	// Find-or-create is a single store operation so concurrent
	// resubmissions of one clientJobId can never mint two jobs.
	job, created, err := h.Store.CreateOrFind(ctx, jobs.New(req.Template, req.ClientJobID, req.Params))
	if err != nil {
		h.Log.FromContext(ctx).Error("job create failed", "error", err.Error())
		httpkit.WriteError(w, errors.Internal("failed to store job"))
		return
	}
	if !created {
		httpkit.WriteJSON(w, http.StatusAccepted, job)
		return
	}

	if err := h.Executor.Submit(job.JobID); err != nil {
		h.Log.FromContext(ctx).Error("job dispatch failed", "job_id", job.JobID, "error", err.Error())
		httpkit.WriteError(w, errors.Internal("failed to dispatch job"))
		return
	}

	h.Log.FromContext(ctx).Info("job accepted", "job_id", job.JobID, "template", job.Template)
	httpkit.WriteJSON(w, http.StatusAccepted, job)
}

// GetJob returns the current record for a job identifier.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.Store.Get(r.Context(), jobID)
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, job)
}
