package fetch

import (
	"context"
	"fmt"

	"github.com/lux-pm/lux/internal/integrity"
	"github.com/lux-pm/lux/internal/progress"
)

// fetchPackedArchive is the last-resort strategy when a git/url/file fetch
// fails: download "<name>-<version>.src.rock" from the configured registry
// and unpack it, mirroring the primary rockspec's layout closely enough
// that the build pipeline doesn't need to know which path was taken.
func (f *Fetcher) fetchPackedArchive(ctx context.Context, stagingDir string, pkg PackageRef, sink progress.Sink) (Result, error) {
	packedURL := fmt.Sprintf("%s/%s-%s.src.rock", f.registryURL, pkg.Name, pkg.Version)
	downloadPath := stagingDir + ".src.rock"

	var downloadErr error
	sink.Map(func(bar progress.Bar) {
		bar.SetMessage(fmt.Sprintf("downloading packed archive %s", packedURL))
		defer bar.FinishAndClear()
		downloadErr = f.download(ctx, packedURL, downloadPath)
	})
	if downloadErr != nil {
		return Result{}, fmt.Errorf("packed archive fallback for %s-%s: %w", pkg.Name, pkg.Version, downloadErr)
	}

	if err := unpackArchive(downloadPath, stagingDir); err != nil {
		return Result{}, err
	}

	hash, err := integrity.HashDirectory(stagingDir)
	if err != nil {
		return Result{}, err
	}
	return Result{Integrity: hash, CanonicalSourceURL: packedURL}, nil
}
