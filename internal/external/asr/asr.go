// Package asr is the thin client for the speech-to-text backend behind
// the Transcriber capability interface. Grounded
// on LumenPrima's internal/transcribe/deepinfra.go (multipart upload,
// bearer auth, word-level JSON decode).
package asr

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

// Word is a single transcribed word with timestamps relative to the start
// of the track that was sent.
type Word struct {
	Text  string
	Start float64
	End   float64
}

// TranscribeRequest is one track's audio plus the language it was spoken in.
type TranscribeRequest struct {
	Audio          io.Reader
	Filename       string
	SourceLanguage string
}

// TranscribeResult is the backend's word-level transcription of a track.
// Speaker attribution (track_index) is applied by the caller, not the ASR
// backend — a single track has a single implicit speaker.
type TranscribeResult struct {
	Words    []Word
	Language string
	Duration float64
}

// Transcriber is the capability interface the diarization workflow's
// transcribe_track step depends on.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error)
}

// HTTPTranscriber calls a REST ASR backend that accepts a multipart audio
// upload and returns word-level timestamps as JSON.
type HTTPTranscriber struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewHTTPTranscriber(baseURL, apiKey, model string) *HTTPTranscriber {
	return &HTTPTranscriber{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  external.NewHTTPClient(external.HeavyTimeout),
	}
}

type asrWord struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type asrResponse struct {
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Words    []asrWord `json:"words"`
}

func (c *HTTPTranscriber) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("asr: create form file: %w", err)
	}
	if _, err := io.Copy(part, req.Audio); err != nil {
		return nil, fmt.Errorf("asr: copy audio data: %w", err)
	}
	if err := w.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("asr: write model field: %w", err)
	}
	if req.SourceLanguage != "" {
		if err := w.WriteField("language", req.SourceLanguage); err != nil {
			return nil, fmt.Errorf("asr: write language field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("asr: close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("asr: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	external.SetBearerAuth(httpReq, c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("asr: request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := external.CheckStatus(resp); err != nil {
		return nil, err
	}

	var out asrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("asr: decode response: %w", err)
	}

	words := make([]Word, len(out.Words))
	for i, w := range out.Words {
		words[i] = Word{Text: w.Text, Start: w.Start, End: w.End}
	}
	return &TranscribeResult{Words: words, Language: out.Language, Duration: out.Duration}, nil
}
