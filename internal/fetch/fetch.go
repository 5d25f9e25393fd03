// Package fetch implements the SourceFetcher capability: turning a
// manifest source spec (git/url/file) into a populated staging directory,
// with a packed-archive fallback and integrity verification. It never
// decides what to do with the staged tree afterward; that is the build
// pipeline's job.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/integrity"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

// Result is what a successful fetch hands back to the build pipeline.
type Result struct {
	Integrity          integrity.Integrity
	CanonicalSourceURL string
}

// SourceFetcher populates stagingDir from spec, optionally overridden by a
// lockfile-pinned URL, reporting progress through sink.
type SourceFetcher interface {
	Fetch(ctx context.Context, stagingDir string, pkg PackageRef, spec manifest.SourceSpec, pinnedURL string, sink progress.Sink) (Result, error)
}

// PackageRef names the package being fetched, needed only for the
// packed-archive fallback's "<name>-<version>.src.rock" filename.
type PackageRef struct {
	Name    manifest.PackageName
	Version string
}

// Fetcher is the default SourceFetcher: git via the system git binary, url
// and file via stdlib I/O plus the archive package, and a packed-archive
// fallback against the configured registry when both fail.
type Fetcher struct {
	http        *http.Client
	registryURL string
}

// New builds a Fetcher from cfg, using cfg.APITimeout for the HTTP client
// that backs url fetches and the packed-archive fallback.
func New(cfg *config.Config) *Fetcher {
	return &Fetcher{
		http:        newHTTPClient(cfg.APITimeout),
		registryURL: cfg.RegistryURL,
	}
}

// Fetch dispatches on spec.Kind, falling back to a packed "<name>-<version>.src.rock"
// download from the registry if the primary strategy fails.
func (f *Fetcher) Fetch(ctx context.Context, stagingDir string, pkg PackageRef, spec manifest.SourceSpec, pinnedURL string, sink progress.Sink) (Result, error) {
	url := spec.URL
	if pinnedURL != "" {
		url = pinnedURL
	}

	var result Result
	var err error
	switch spec.Kind {
	case "git":
		result, err = f.fetchGit(ctx, stagingDir, spec, url, sink)
	case "file":
		result, err = f.fetchFile(ctx, stagingDir, spec, url, sink)
	default:
		result, err = f.fetchURL(ctx, stagingDir, spec, url, sink)
	}
	if err == nil {
		if verr := verifyDeclared(spec, result.Integrity); verr != nil {
			return Result{}, verr
		}
		return result, nil
	}

	packedResult, packedErr := f.fetchPackedArchive(ctx, stagingDir, pkg, sink)
	if packedErr != nil {
		return Result{}, err
	}
	if verr := verifyDeclared(spec, packedResult.Integrity); verr != nil {
		return Result{}, verr
	}
	return packedResult, nil
}

// verifyDeclared checks fetched bytes against a manifest-declared integrity
// value, when one is present. A mismatch is always fatal.
func verifyDeclared(spec manifest.SourceSpec, actual integrity.Integrity) error {
	if spec.Hash == "" {
		return nil
	}
	declared, err := integrity.Parse(spec.Hash)
	if err != nil {
		return fmt.Errorf("parse declared integrity %q: %w", spec.Hash, err)
	}
	if !declared.Matches(actual) {
		return &errs.SourceIntegrityMismatchError{Expected: declared.String(), Actual: actual.String()}
	}
	return nil
}

// newHTTPClient builds the hardened client used for url fetches and the
// packed-archive fallback: explicit timeouts, compression disabled (the
// fetched bytes are attacker-influenced and later hashed for integrity, so
// a decompression bomb is a real risk), a capped redirect chain, and an
// SSRF-safe redirect check — the same recipe as githubindex's client.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DisableCompression:    true,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: checkRedirect,
	}
}
