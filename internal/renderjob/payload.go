// Package renderjob defines the versioned payload handed from the API
// to the render worker through the PAYLOAD_B64 environment variable.
package renderjob

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Version is the current payload schema version. The worker rejects
// payloads carrying any other value, so schema changes surface loudly
// instead of being misread.
const Version = "v1"

// Payload is the full contract between API and worker.
type Payload struct {
	Version string `json:"version"`
	JobID   string `json:"jobId"`
	Params  Params `json:"params"`
}

// Params describes one render: loop both inputs to durationSec and
// upload the composite.
type Params struct {
	DurationSec int    `json:"durationSec"`
	Video       Input  `json:"video"`
	Audio       Input  `json:"audio"`
	Output      Output `json:"output"`
}

// Input is a presigned-GET media source.
type Input struct {
	URL string `json:"url"`
}

// Output names the presigned-PUT upload target.
type Output struct {
	Upload Upload `json:"upload"`
}

// Upload carries the presigned PUT URL for the rendered file.
type Upload struct {
	PutURL string `json:"putUrl"`
}

// New builds a v1 payload.
func New(jobID string, durationSec int, videoURL, audioURL, putURL string) *Payload {
	return &Payload{
		Version: Version,
		JobID:   jobID,
		Params: Params{
			DurationSec: durationSec,
			Video:       Input{URL: videoURL},
			Audio:       Input{URL: audioURL},
			Output:      Output{Upload: Upload{PutURL: putURL}},
		},
	}
}

// Validate checks the payload is complete enough to render.
func (p *Payload) Validate() error {
	if p.Version != Version {
		return fmt.Errorf("unsupported payload version %q (want %q)", p.Version, Version)
	}
	if p.JobID == "" {
		return fmt.Errorf("payload missing jobId")
	}
	if p.Params.DurationSec <= 0 {
		return fmt.Errorf("durationSec must be positive, got %d", p.Params.DurationSec)
	}
	if p.Params.Video.URL == "" {
		return fmt.Errorf("payload missing video url")
	}
	if p.Params.Audio.URL == "" {
		return fmt.Errorf("payload missing audio url")
	}
	if p.Params.Output.Upload.PutURL == "" {
		return fmt.Errorf("payload missing output upload putUrl")
	}
	return nil
}

// EncodeBase64 serializes the payload for the PAYLOAD_B64 env variable.
func (p *Payload) EncodeBase64() (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeBase64 parses and validates a PAYLOAD_B64 value.
func DecodeBase64(encoded string) (*Payload, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty payload")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
