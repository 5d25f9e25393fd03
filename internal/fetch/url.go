package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/integrity"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

// fetchURL downloads rawURL into stagingDir, then unpacks it there; when the
// spec declares an unpack_dir, the archive is extracted under that
// subdirectory name instead.
func (f *Fetcher) fetchURL(ctx context.Context, stagingDir string, spec manifest.SourceSpec, rawURL string, sink progress.Sink) (Result, error) {
	if err := validateScheme(rawURL); err != nil {
		return Result{}, err
	}

	downloadPath := filepath.Join(stagingDir, ".download")
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create staging dir: %w", err)
	}

	var downloadErr error
	sink.Map(func(bar progress.Bar) {
		bar.SetMessage(fmt.Sprintf("downloading %s", rawURL))
		defer bar.FinishAndClear()
		downloadErr = f.download(ctx, rawURL, downloadPath)
	})
	if downloadErr != nil {
		return Result{}, &errs.FetchFailureError{URL: rawURL, Err: downloadErr}
	}
	defer os.Remove(downloadPath)

	unpackTarget := stagingDir
	if spec.UnpackDir != "" {
		unpackTarget = filepath.Join(stagingDir, spec.UnpackDir)
	}
	if err := os.MkdirAll(unpackTarget, 0o755); err != nil {
		return Result{}, fmt.Errorf("create unpack target: %w", err)
	}
	if err := unpackArchive(downloadPath, unpackTarget); err != nil {
		return Result{}, err
	}

	hash, err := integrity.HashDirectory(stagingDir)
	if err != nil {
		return Result{}, err
	}
	return Result{Integrity: hash, CanonicalSourceURL: rawURL}, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}
