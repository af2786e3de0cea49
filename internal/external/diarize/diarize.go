// Package diarize is the thin client for the speaker-diarization backend
// behind the Diarizer capability interface. The multi-track diarization
// workflow derives speaker identity directly from
// track index and never calls this backend; it exists for the single-track
// case (one mixed recording, multiple speakers) where speaker boundaries
// must come from an external diarization model. Grounded on the same
// multipart-upload idiom as internal/external/asr, following
// therealchrisrock-gitscribe's AssemblyAI provider (which requests speaker
// labels as part of its transcription call) factored out as a standalone
// capability per the REDESIGN FLAGS guidance to stop subclassing per backend.
package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/monadical-sas/reflector/internal/external"
)

// Segment is one speaker turn as identified by the diarization backend.
type Segment struct {
	Speaker string
	Start   float64
	End     float64
}

// DiarizeRequest is the audio to split into speaker turns.
type DiarizeRequest struct {
	Audio    io.Reader
	Filename string
}

// DiarizeResult is the backend's speaker-turn segmentation.
type DiarizeResult struct {
	Segments []Segment
}

// Diarizer is the capability interface for speaker-turn detection.
type Diarizer interface {
	Diarize(ctx context.Context, req DiarizeRequest) (*DiarizeResult, error)
}

// HTTPDiarizer calls a REST diarization backend over multipart upload.
type HTTPDiarizer struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPDiarizer(baseURL, apiKey string) *HTTPDiarizer {
	return &HTTPDiarizer{baseURL: baseURL, apiKey: apiKey, client: external.NewHTTPClient(external.HeavyTimeout)}
}

type diarizeSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

type diarizeResponse struct {
	Segments []diarizeSegment `json:"segments"`
}

func (c *HTTPDiarizer) Diarize(ctx context.Context, req DiarizeRequest) (*DiarizeResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("diarize: create form file: %w", err)
	}
	if _, err := io.Copy(part, req.Audio); err != nil {
		return nil, fmt.Errorf("diarize: copy audio data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("diarize: close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/diarize", &buf)
	if err != nil {
		return nil, fmt.Errorf("diarize: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	external.SetBearerAuth(httpReq, c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("diarize: request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := external.CheckStatus(resp); err != nil {
		return nil, err
	}

	var out diarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("diarize: decode response: %w", err)
	}

	segments := make([]Segment, len(out.Segments))
	for i, s := range out.Segments {
		segments[i] = Segment{Speaker: s.Speaker, Start: s.Start, End: s.End}
	}
	return &DiarizeResult{Segments: segments}, nil
}
