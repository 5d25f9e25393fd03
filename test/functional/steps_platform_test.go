package functional

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/platform"
)

func registerPlatformSteps(ctx *godog.ScenarioContext) {
	ctx.Step(`^a rockspec for "([^"]*)" "([^"]*)" depending on "([^"]*)" by default$`, aRockspecDependingByDefault)
	ctx.Step(`^"([^"]*)" additionally depends on "([^"]*)" only on platform "([^"]*)"$`, additionallyDependsOnPlatform)
	ctx.Step(`^the manifest is validated$`, theManifestIsValidated)
	ctx.Step(`^the dependency list for platform "([^"]*)" does not include "([^"]*)"$`, dependencyListForPlatformDoesNotInclude)
	ctx.Step(`^the dependency list for platform "([^"]*)" includes "([^"]*)"$`, dependencyListForPlatformIncludes)
}

func aRockspecDependingByDefault(ctx context.Context, name, pkgVersion, dep string) error {
	s := getState(ctx)
	s.manifestTable = manifest.RockspecTable{
		Package:      name,
		Version:      pkgVersion,
		Dependencies: []string{dep},
		Source:       manifest.SourceTable{Kind: "url", URL: "https://example.test/" + name + "-" + pkgVersion + ".tar.gz"},
		Platforms:    map[string]manifest.PlatformOverlay{},
	}
	return nil
}

func additionallyDependsOnPlatform(ctx context.Context, _, dep, platformID string) error {
	s := getState(ctx)
	overlay := s.manifestTable.Platforms[platformID]
	overlay.Dependencies = append(overlay.Dependencies, dep)
	s.manifestTable.Platforms[platformID] = overlay
	return nil
}

func theManifestIsValidated(ctx context.Context) error {
	s := getState(ctx)
	s.validated, s.validateErr = manifest.BuildRockspec("widget.rockspec", s.manifestTable)
	return s.validateErr
}

func dependencyListForPlatformDoesNotInclude(ctx context.Context, platformID, dep string) error {
	s := getState(ctx)
	deps := s.validated.Dependencies.Get(platform.Parse(platformID))
	if _, ok := deps.Find(manifest.Normalize(dep)); ok {
		return fmt.Errorf("expected %q to be absent from %s dependencies, but it was present", dep, platformID)
	}
	return nil
}

func dependencyListForPlatformIncludes(ctx context.Context, platformID, dep string) error {
	s := getState(ctx)
	deps := s.validated.Dependencies.Get(platform.Parse(platformID))
	if _, ok := deps.Find(manifest.Normalize(dep)); !ok {
		return fmt.Errorf("expected %q among %s dependencies, but it was absent", dep, platformID)
	}
	return nil
}
