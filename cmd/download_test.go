package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`[{"slug":"lexington","url":"https://example.org/lex.pdf"}]`), 0o644))
	entries, err := readManifest(good)
	require.NoError(t, err)
	assert.Equal(t, []manifestEntry{{Slug: "lexington", URL: "https://example.org/lex.pdf"}}, entries)

	for name, body := range map[string]string{
		"slug.json": `[{"slug":"../etc","url":"https://example.org/x.pdf"}]`,
		"url.json":  `[{"slug":"hull","url":"ftp://example.org/x.pdf"}]`,
		"bad.json":  `{`,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := readManifest(path)
		assert.Error(t, err, name)
	}

	_, err = readManifest(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestDownloadAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lexington.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("%PDF-1.4 permit log"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acton.pdf"), []byte("old"), 0o644))

	entries := []manifestEntry{
		{Slug: "lexington", URL: srv.URL + "/lexington.pdf"},
		{Slug: "acton", URL: srv.URL + "/acton.pdf"},
		{Slug: "hull", URL: srv.URL + "/hull.pdf"},
	}
	var log bytes.Buffer
	downloaded, skipped, failed := downloadAll(context.Background(), srv.Client(), entries, dir, &log)
	assert.Equal(t, 1, downloaded)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)

	data, err := os.ReadFile(filepath.Join(dir, "lexington.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 permit log", string(data))

	_, err = os.Stat(filepath.Join(dir, "hull.pdf"))
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, log.String(), "status 404")
	assert.Contains(t, log.String(), "skip acton.pdf (already exists)")
}
