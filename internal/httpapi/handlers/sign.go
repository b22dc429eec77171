package handlers

import (
	"net/http"
	"time"

	"looprender/internal/httpkit"
	"looprender/internal/pkg/errors"
)

type signRequest struct {
	VideoKey   string `json:"videoKey"`
	AudioKey   string `json:"audioKey"`
	OutputKey  string `json:"outputKey"`
	ExpiresSec int    `json:"expiresSec"`
}

type signResponse struct {
	VideoGetURL  string `json:"videoGetUrl,omitempty"`
	AudioGetURL  string `json:"audioGetUrl,omitempty"`
	OutputPutURL string `json:"outputPutUrl,omitempty"`
}

// Sign issues presigned URLs for the requested object keys: GET for the
// inputs, PUT for the output. Absent keys yield absent URLs.
func (h *Handlers) Sign(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteError(w, errors.Validation("invalid JSON body"))
		return
	}

	if req.ExpiresSec <= 0 {
		req.ExpiresSec = 3600
	}
	expiry := time.Duration(req.ExpiresSec) * time.Second

	signer, err := h.NewSigner()
	if err != nil {
		h.Log.FromContext(r.Context()).Error("signer unavailable", "error", err.Error())
		httpkit.WriteError(w, errors.Misconfig("storage credentials are not configured"))
		return
	}

	ctx := r.Context()
	var resp signResponse

	if req.VideoKey != "" {
		resp.VideoGetURL, err = signer.PresignGet(ctx, req.VideoKey, expiry)
		if err != nil {
			httpkit.WriteError(w, errors.Wrap(err, "sign.video", "failed to sign video key"))
			return
		}
	}
	if req.AudioKey != "" {
		resp.AudioGetURL, err = signer.PresignGet(ctx, req.AudioKey, expiry)
		if err != nil {
			httpkit.WriteError(w, errors.Wrap(err, "sign.audio", "failed to sign audio key"))
			return
		}
	}
	if req.OutputKey != "" {
		resp.OutputPutURL, err = signer.PresignPut(ctx, req.OutputKey, expiry)
		if err != nil {
			httpkit.WriteError(w, errors.Wrap(err, "sign.output", "failed to sign output key"))
			return
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, resp)
}
