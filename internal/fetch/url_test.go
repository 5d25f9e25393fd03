package fetch

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

func tarGzBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()
	gzw.Close()
	return buf.Bytes()
}

func TestFetchURLDownloadsAndUnpacks(t *testing.T) {
	payload := tarGzBytes(t, map[string]string{"main.lua": "return true\n"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	f := &Fetcher{http: server.Client()}
	stagingDir := t.TempDir()
	spec := manifest.SourceSpec{Kind: "url", URL: server.URL + "/pkg-1.0.0.tar.gz"}

	result, err := f.fetchURL(context.Background(), stagingDir, spec, spec.URL, progress.NoopSink{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Integrity.IsEmpty() {
		t.Error("expected a non-empty computed integrity")
	}
	data, err := os.ReadFile(filepath.Join(stagingDir, "main.lua"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "return true\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestFetchURLRejectsUnsupportedScheme(t *testing.T) {
	f := &Fetcher{http: http.DefaultClient}
	spec := manifest.SourceSpec{Kind: "url", URL: "svn://example.test/repo"}
	if _, err := f.fetchURL(context.Background(), t.TempDir(), spec, spec.URL, progress.NoopSink{}); err == nil {
		t.Error("expected an unsupported-VCS error for an svn:// URL")
	}
}
