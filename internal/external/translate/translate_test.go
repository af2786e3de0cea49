package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/monadical-sas/reflector/internal/dag"
	"github.com/stretchr/testify/require"
)

func TestHTTPTranslator_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"translated_text":"bonjour"}`))
	}))
	defer srv.Close()

	c := NewHTTPTranslator(srv.URL, "secret")
	result, err := c.Translate(context.Background(), TranslateRequest{
		Text:           "hello",
		SourceLanguage: "en",
		TargetLanguage: "fr",
	})
	require.NoError(t, err)
	require.Equal(t, "bonjour", result.Text)
}

func TestHTTPTranslator_RetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPTranslator(srv.URL, "")
	_, err := c.Translate(context.Background(), TranslateRequest{Text: "hi"})
	require.Error(t, err)

	var httpErr *dag.HTTPStatusError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	require.Equal(t, 2*time.Second, httpErr.RetryAfter)
}
