package fetch

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func writeTarGz(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "archive.tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gzw := gzip.NewWriter(f)
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
	return path
}

func writeZip(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "archive.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	zw.Close()
	return path
}

func TestUnpackTarGz(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	archivePath := writeTarGz(t, src, map[string]string{"hello.lua": "return 1\n"})

	if err := unpackArchive(archivePath, dest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "hello.lua"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "return 1\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestUnpackZip(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	archivePath := writeZip(t, src, map[string]string{"lib/mod.lua": "return {}\n"})

	if err := unpackArchive(archivePath, dest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "lib", "mod.lua"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "return {}\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestUnpackTarRejectsPathTraversal(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	archivePath := writeTarGz(t, src, map[string]string{"../../etc/passwd": "pwned\n"})

	if err := unpackArchive(archivePath, dest); err == nil {
		t.Error("expected a path-traversal entry to be rejected")
	}
}

func TestDetectFormatPrefersContentSniffing(t *testing.T) {
	dir := t.TempDir()
	// A zip file with a misleading ".tar.gz" extension should still be
	// sniffed correctly by magic bytes.
	misnamed := filepath.Join(dir, "archive.tar.gz")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("a.txt")
	w.Write([]byte("hi"))
	zw.Close()
	if err := os.WriteFile(misnamed, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	format, err := detectFormat(misnamed)
	if err != nil {
		t.Fatal(err)
	}
	if format != "zip" {
		t.Errorf("format = %q, want zip (sniffed over extension)", format)
	}
}
