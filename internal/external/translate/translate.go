// Package translate is the thin client for the translation backend behind
// the Translator capability interface. Used when a workflow's
// target_language differs from the source tracks' language — no step in
// the current diarization workflow invokes it directly (every step
// operates entirely in each track's source language), but the
// capability is carried as a distinct backend and is available to
// future workflow steps without any client-side change.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/monadical-sas/reflector/internal/external"
)

// TranslateRequest is a span of text plus its source and target languages.
type TranslateRequest struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
}

// TranslateResult is the translated text.
type TranslateResult struct {
	Text string
}

// Translator is the capability interface for text translation.
type Translator interface {
	Translate(ctx context.Context, req TranslateRequest) (*TranslateResult, error)
}

// HTTPTranslator calls a REST translation backend with a JSON body.
type HTTPTranslator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPTranslator(baseURL, apiKey string) *HTTPTranslator {
	return &HTTPTranslator{baseURL: baseURL, apiKey: apiKey, client: external.NewHTTPClient(external.ShortTimeout)}
}

type translateRequestBody struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponseBody struct {
	TranslatedText string `json:"translated_text"`
}

func (c *HTTPTranslator) Translate(ctx context.Context, req TranslateRequest) (*TranslateResult, error) {
	body, err := json.Marshal(translateRequestBody{
		Text:   req.Text,
		Source: req.SourceLanguage,
		Target: req.TargetLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("translate: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("translate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	external.SetBearerAuth(httpReq, c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("translate: request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := external.CheckStatus(resp); err != nil {
		return nil, err
	}

	var out translateResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("translate: decode response: %w", err)
	}
	return &TranslateResult{Text: out.TranslatedText}, nil
}
