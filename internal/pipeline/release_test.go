package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioetl-io/bioetl/internal/httpclient"
	"github.com/bioetl-io/bioetl/internal/sources"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProbeRelease_ReadsReleaseField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status.json", r.URL.Path)
		fmt.Fprint(w, `{"release": "2024.1"}`)
	}))
	defer srv.Close()

	client := httpclient.NewClient("", map[string]httpclient.SourceConfig{
		"chembl": {Retry: httpclient.DefaultRetryConfig()},
	}, discardLogger())

	src := sources.Source{Name: "chembl", BaseURL: srv.URL}

	release, err := ProbeRelease(t.Context(), client, src)
	require.NoError(t, err)
	assert.Equal(t, "2024.1", release)
}

func TestProbeRelease_FallsBackThroughFieldPriority(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chembl_db_version": 33}`)
	}))
	defer srv.Close()

	client := httpclient.NewClient("", map[string]httpclient.SourceConfig{
		"chembl": {Retry: httpclient.DefaultRetryConfig()},
	}, discardLogger())

	src := sources.Source{Name: "chembl", BaseURL: srv.URL}

	release, err := ProbeRelease(t.Context(), client, src)
	require.NoError(t, err)
	assert.Equal(t, "33", release)
}

func TestProbeRelease_UsesConfiguredStatusPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/custom_status.json", r.URL.Path)
		fmt.Fprint(w, `{"version": "v9"}`)
	}))
	defer srv.Close()

	client := httpclient.NewClient("", map[string]httpclient.SourceConfig{
		"chembl": {Retry: httpclient.DefaultRetryConfig()},
	}, discardLogger())

	src := sources.Source{Name: "chembl", BaseURL: srv.URL, StatusPath: "/custom_status.json"}

	release, err := ProbeRelease(t.Context(), client, src)
	require.NoError(t, err)
	assert.Equal(t, "v9", release)
}

func TestProbeRelease_ErrorsWhenNoKnownFieldPresent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ok"}`)
	}))
	defer srv.Close()

	client := httpclient.NewClient("", map[string]httpclient.SourceConfig{
		"chembl": {Retry: httpclient.DefaultRetryConfig()},
	}, discardLogger())

	src := sources.Source{Name: "chembl", BaseURL: srv.URL}

	_, err := ProbeRelease(t.Context(), client, src)
	assert.Error(t, err)
}
