// Package external holds the shared plumbing for the thin backend clients
// in its asr, diarize, translate, and llm subpackages: HTTP client
// construction, bearer auth, and classified-error conversion. Retrying a
// failed call is internal/dag's job, not any client's — every client here
// returns a *dag.HTTPStatusError on a non-2xx response and lets the caller
// decide via dag.Classify.
package external

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/monadical-sas/reflector/internal/dag"
)

const (
	// ShortTimeout covers request/response style calls (translate, single
	// LLM turns).
	ShortTimeout = 60 * time.Second
	// HeavyTimeout covers long-running backends (ASR/diarization over a
	// full track).
	HeavyTimeout = 600 * time.Second
)

// NewHTTPClient builds the *http.Client used by every thin backend client
// in this tree.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// SetBearerAuth sets the Authorization header when apiKey is non-empty.
func SetBearerAuth(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// CheckStatus converts a non-2xx response into a *dag.HTTPStatusError,
// carrying the response body and, for 429s, the Retry-After hint.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	httpErr := &dag.HTTPStatusError{
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("%s: %s", resp.Status, string(body)),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				httpErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
	}
	return httpErr
}
