package fetch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lux-pm/lux/internal/integrity"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

// fetchGit clones spec's repository into stagingDir: a shallow (depth 1)
// clone when no checkout ref is declared, otherwise a full clone followed
// by an explicit checkout and a rev-parse to record the resolved commit.
// The .git directory is removed afterward since its contents (packfiles,
// reflogs) are non-deterministic and would poison the content hash.
func (f *Fetcher) fetchGit(ctx context.Context, stagingDir string, spec manifest.SourceSpec, rawURL string, sink progress.Sink) (Result, error) {
	if err := validateScheme(rawURL); err != nil {
		return Result{}, err
	}
	cloneURL := strings.TrimPrefix(rawURL, "git+")

	ref := spec.Tag
	if ref == "" {
		ref = spec.Branch
	}

	var resolvedCommit string
	var runErr error
	sink.Map(func(bar progress.Bar) {
		bar.SetMessage(fmt.Sprintf("cloning %s", cloneURL))
		defer bar.FinishAndClear()

		if ref == "" {
			runErr = runGit(ctx, "", "clone", "--depth", "1", cloneURL, stagingDir)
		} else {
			if err := runGit(ctx, "", "clone", cloneURL, stagingDir); err != nil {
				runErr = err
				return
			}
			if err := runGit(ctx, stagingDir, "checkout", ref); err != nil {
				runErr = err
				return
			}
		}
		if runErr != nil {
			return
		}

		out, err := gitOutput(ctx, stagingDir, "rev-parse", "HEAD")
		if err != nil {
			runErr = err
			return
		}
		resolvedCommit = strings.TrimSpace(out)
	})
	if runErr != nil {
		return Result{}, runErr
	}

	if err := os.RemoveAll(filepath.Join(stagingDir, ".git")); err != nil {
		return Result{}, fmt.Errorf("remove .git from staging tree: %w", err)
	}

	hash, err := integrity.HashDirectory(stagingDir)
	if err != nil {
		return Result{}, err
	}

	canonical := cloneURL
	if resolvedCommit != "" {
		canonical = fmt.Sprintf("%s#%s", cloneURL, resolvedCommit)
	}
	return Result{Integrity: hash, CanonicalSourceURL: canonical}, nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s failed: %w\noutput: %s", strings.Join(args, " "), err, out)
	}
	return nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}
