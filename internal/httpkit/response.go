package httpkit

import (
	"encoding/json"
	"net/http"

	"looprender/internal/pkg/errors"
)

// ErrorEnvelope is the uniform error shape returned by every endpoint:
// {"error":{"code":..., "message":..., "details":...}}
type ErrorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	var env ErrorEnvelope
	env.Error.Code = code
	env.Error.Message = msg
	env.Error.Details = details

	WriteJSON(w, status, env)
}

// WriteError maps a coded error onto the envelope and matching status.
func WriteError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := errors.GetHTTPStatus(err)

	msg := err.Error()
	var e *errors.Error
	if errors.As(err, &e) {
		msg = e.Message
	}

	WriteErr(w, status, string(code), msg, errors.GetFields(err))
}
