package functional

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/fetch"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

func registerFetchSteps(ctx *godog.ScenarioContext) {
	ctx.Step(`^an upstream source directory containing a file "([^"]*)" with content "([^"]*)"$`, anUpstreamSourceDirectoryContainingAFile)
	ctx.Step(`^it also contains a file "([^"]*)" with content "([^"]*)"$`, itAlsoContainsAFile)
	ctx.Step(`^the manifest declares a source hash that does not match it$`, theManifestDeclaresAMismatchedSourceHash)
	ctx.Step(`^I fetch the source$`, iFetchTheSource)
	ctx.Step(`^I fetch the source again into a fresh staging directory$`, iFetchTheSourceAgain)
	ctx.Step(`^the fetch fails with a source integrity mismatch error$`, theFetchFailsWithASourceIntegrityMismatchError)
	ctx.Step(`^both fetches report the same source integrity$`, bothFetchesReportTheSameSourceIntegrity)
}

func writeUpstreamFile(s *scenarioState, relPath, content string) error {
	if s.sourceDir == "" {
		s.sourceDir = filepath.Join(s.root, "upstream")
	}
	dest := filepath.Join(s.sourceDir, relPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(content), 0o644)
}

func anUpstreamSourceDirectoryContainingAFile(ctx context.Context, relPath, content string) error {
	return writeUpstreamFile(getState(ctx), relPath, content)
}

func itAlsoContainsAFile(ctx context.Context, relPath, content string) error {
	return writeUpstreamFile(getState(ctx), relPath, content)
}

func theManifestDeclaresAMismatchedSourceHash(ctx context.Context) error {
	getState(ctx).declaredHash = "sha256-" + strings.Repeat("0", 64)
	return nil
}

func runFetch(ctx context.Context, s *scenarioState, stagingDirName string) (fetch.Result, error) {
	stagingDir := filepath.Join(s.root, stagingDirName)
	spec := manifest.SourceSpec{Kind: "file", URL: "file://" + s.sourceDir, Hash: s.declaredHash}
	f := fetch.New(&config.Config{})
	return f.Fetch(ctx, stagingDir, fetch.PackageRef{Name: "fixture", Version: "1.0.0"}, spec, "", progress.Default())
}

func iFetchTheSource(ctx context.Context) error {
	s := getState(ctx)
	result, err := runFetch(ctx, s, fmt.Sprintf("staging-%d", len(s.fetchResults)))
	s.fetchErr = err
	s.fetchErrs = append(s.fetchErrs, err)
	s.fetchResults = append(s.fetchResults, result)
	return nil
}

func iFetchTheSourceAgain(ctx context.Context) error {
	return iFetchTheSource(ctx)
}

func theFetchFailsWithASourceIntegrityMismatchError(ctx context.Context) error {
	s := getState(ctx)
	var target *errs.SourceIntegrityMismatchError
	if !errors.As(s.fetchErr, &target) {
		return fmt.Errorf("expected a source integrity mismatch error, got: %v", s.fetchErr)
	}
	return nil
}

func bothFetchesReportTheSameSourceIntegrity(ctx context.Context) error {
	s := getState(ctx)
	if len(s.fetchResults) != 2 {
		return fmt.Errorf("expected exactly 2 fetches, got %d", len(s.fetchResults))
	}
	for _, err := range s.fetchErrs {
		if err != nil {
			return fmt.Errorf("expected both fetches to succeed, got: %w", err)
		}
	}
	first, second := s.fetchResults[0].Integrity.String(), s.fetchResults[1].Integrity.String()
	if first == "" || first != second {
		return fmt.Errorf("expected equal non-empty integrity digests, got %q and %q", first, second)
	}
	return nil
}
