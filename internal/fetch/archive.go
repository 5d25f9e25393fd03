package fetch

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// detectFormat infers an archive's format, preferring content sniffing
// (http.DetectContentType) over the filename extension, falling back to
// the extension for formats the stdlib sniffer doesn't recognize (xz has
// no magic-number entry in net/http's table).
func detectFormat(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := io.ReadFull(f, buf)
	mime := http.DetectContentType(buf[:n])

	lower := strings.ToLower(path)
	switch {
	case mime == "application/zip":
		return "zip", nil
	case mime == "application/x-gzip", mime == "application/gzip":
		return "tar.gz", nil
	case mime == "application/x-bzip2":
		return "tar.bz2", nil
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return "tar.xz", nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return "tar.gz", nil
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return "tar.bz2", nil
	case strings.HasSuffix(lower, ".zip"):
		return "zip", nil
	case strings.HasSuffix(lower, ".tar"):
		return "tar", nil
	default:
		return "", fmt.Errorf("cannot infer archive format for %s", path)
	}
}

// unpackArchive extracts archivePath's contents into destDir, dispatching
// on detectFormat's result. Every entry's target path is validated to stay
// within destDir and every symlink's resolved target likewise, guarding
// against path-traversal and symlink-escape archives.
func unpackArchive(archivePath, destDir string) error {
	format, err := detectFormat(archivePath)
	if err != nil {
		return err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer f.Close()

	switch format {
	case "zip":
		return unpackZip(archivePath, destDir)
	case "tar":
		return unpackTarReader(tar.NewReader(f), destDir)
	case "tar.gz":
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer gzr.Close()
		return unpackTarReader(tar.NewReader(gzr), destDir)
	case "tar.bz2":
		return unpackTarReader(tar.NewReader(bzip2.NewReader(f)), destDir)
	case "tar.xz":
		xzr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("open xz stream: %w", err)
		}
		return unpackTarReader(tar.NewReader(xzr), destDir)
	default:
		return fmt.Errorf("unsupported archive format %q", format)
	}
}

func unpackTarReader(tr *tar.Reader, destDir string) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent directory for %s: %w", target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}
			out.Close()
		case tar.TypeSymlink:
			if err := validateSymlinkTarget(header.Linkname, target, destDir); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent directory for %s: %w", target, err)
			}
			os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}
		}
	}
}

func unpackZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip %s: %w", archivePath, err)
	}
	defer r.Close()

	for _, entry := range r.File {
		target, err := safeJoin(destDir, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent directory for %s: %w", target, err)
		}

		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", entry.Name, err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, entry.Mode())
		if err != nil {
			rc.Close()
			return fmt.Errorf("create file %s: %w", target, err)
		}
		_, copyErr := io.Copy(out, rc)
		out.Close()
		rc.Close()
		if copyErr != nil {
			return fmt.Errorf("write file %s: %w", target, copyErr)
		}
	}
	return nil
}

// safeJoin resolves name under destDir, rejecting any entry whose path
// would escape it (".." components, absolute paths) rather than silently
// clamping it back inside.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if target != destDir && !strings.HasPrefix(target, destDir+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry escapes destination directory: %s", name)
	}
	return target, nil
}

// validateSymlinkTarget rejects an absolute symlink target and any
// relative target whose resolved location would escape destDir.
func validateSymlinkTarget(linkTarget, linkLocation, destDir string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("absolute symlink targets are not allowed: %s -> %s", linkLocation, linkTarget)
	}
	resolved := filepath.Join(filepath.Dir(linkLocation), linkTarget)
	if resolved != destDir && !strings.HasPrefix(resolved, destDir+string(filepath.Separator)) {
		return fmt.Errorf("symlink target escapes destination directory: %s -> %s", linkLocation, linkTarget)
	}
	return nil
}
