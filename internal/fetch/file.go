package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/lux-pm/lux/internal/integrity"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

// fetchFile copies or unpacks a local path into stagingDir: a directory is
// copied recursively (preserving symlinks), a file is unpacked like a URL
// download (MIME-inferred archive format).
func (f *Fetcher) fetchFile(ctx context.Context, stagingDir string, spec manifest.SourceSpec, rawURL string, sink progress.Sink) (Result, error) {
	if err := validateScheme(rawURL); err != nil {
		return Result{}, err
	}
	localPath := localPathFromURL(rawURL)

	info, err := os.Stat(localPath)
	if err != nil {
		return Result{}, fmt.Errorf("stat source file %s: %w", localPath, err)
	}

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create staging dir: %w", err)
	}

	var copyErr error
	sink.Map(func(bar progress.Bar) {
		bar.SetMessage(fmt.Sprintf("copying %s", localPath))
		defer bar.FinishAndClear()

		if info.IsDir() {
			copyErr = copyDirectory(localPath, stagingDir)
			return
		}
		copyErr = unpackArchive(localPath, stagingDir)
	})
	if copyErr != nil {
		return Result{}, copyErr
	}

	hash, err := integrity.HashDirectory(stagingDir)
	if err != nil {
		return Result{}, err
	}
	return Result{Integrity: hash, CanonicalSourceURL: rawURL}, nil
}

// localPathFromURL strips a file:// scheme, if present, leaving a plain
// filesystem path untouched.
func localPathFromURL(rawURL string) string {
	if !strings.HasPrefix(rawURL, "file://") {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.TrimPrefix(rawURL, "file://")
	}
	return u.Path
}

// copyDirectory recursively copies src into dst, preserving symlinks —
// the recursive-copy half of a local directory source spec.
func copyDirectory(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		linfo, err := os.Lstat(path)
		if err != nil {
			return err
		}
		if linfo.Mode()&os.ModeSymlink != 0 {
			return copySymlink(path, target)
		}
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target, info.Mode())
	})
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("read symlink %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent directory for %s: %w", dst, err)
	}
	os.Remove(dst)
	return os.Symlink(target, dst)
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent directory for %s: %w", dst, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return os.Chmod(dst, mode)
}
