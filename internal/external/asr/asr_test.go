package asr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/monadical-sas/reflector/internal/dag"
	"github.com/stretchr/testify/require"
)

func TestHTTPTranscriber_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"language":"en","duration":1.5,"words":[{"text":"hi","start":0,"end":0.5}]}`))
	}))
	defer srv.Close()

	c := NewHTTPTranscriber(srv.URL, "secret", "whisper")
	result, err := c.Transcribe(context.Background(), TranscribeRequest{
		Audio:          strings.NewReader("fake-audio"),
		Filename:       "track.opus",
		SourceLanguage: "en",
	})
	require.NoError(t, err)
	require.Equal(t, "en", result.Language)
	require.Len(t, result.Words, 1)
	require.Equal(t, "hi", result.Words[0].Text)
}

func TestHTTPTranscriber_ClassifiedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("backend overloaded"))
	}))
	defer srv.Close()

	c := NewHTTPTranscriber(srv.URL, "", "whisper")
	_, err := c.Transcribe(context.Background(), TranscribeRequest{Audio: strings.NewReader("x"), Filename: "t.opus"})
	require.Error(t, err)
	require.Equal(t, dag.ClassTransient, dag.Classify(err))
}

func TestHTTPTranscriber_PermanentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad audio"))
	}))
	defer srv.Close()

	c := NewHTTPTranscriber(srv.URL, "", "whisper")
	_, err := c.Transcribe(context.Background(), TranscribeRequest{Audio: strings.NewReader("x"), Filename: "t.opus"})
	require.Error(t, err)
	require.Equal(t, dag.ClassPermanent, dag.Classify(err))
}
