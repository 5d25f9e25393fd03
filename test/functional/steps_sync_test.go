package functional

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cucumber/godog"

	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/version"
)

func registerSyncSteps(ctx *godog.ScenarioContext) {
	ctx.Step(`^an installed rock "([^"]*)" "([^"]*)" with no dependencies$`, anInstalledRockWithNoDependencies)
	ctx.Step(`^an installed rock "([^"]*)" "([^"]*)" depending on "([^"]*)" "([^"]*)"$`, anInstalledRockDependingOn)
	ctx.Step(`^the lockfile is flushed$`, theLockfileIsFlushed)
	ctx.Step(`^I compute the sync spec for requirement "([^"]*)"$`, iComputeTheSyncSpecForRequirement)
	ctx.Step(`^I compute the sync spec for no requirements$`, iComputeTheSyncSpecForNoRequirements)
	ctx.Step(`^"([^"]*)" is not in the sync spec's removal set$`, isNotInTheSyncSpecsRemovalSet)
	ctx.Step(`^"([^"]*)" is in the sync spec's removal set$`, isInTheSyncSpecsRemovalSet)
}

// ensureGuard lazily opens this scenario's one lockfile and holds a single
// write guard open across every Given step: PackageSyncSpec needs
// Entrypoints, which only "the lockfile is flushed" (Guard.Flush) computes.
func ensureGuard(s *scenarioState) error {
	if s.guard != nil {
		return nil
	}
	lf, err := lockfile.OpenLockfile(filepath.Join(s.root, "sync.lock"))
	if err != nil {
		return err
	}
	guard, err := lf.Lock()
	if err != nil {
		return err
	}
	s.lf = lf
	s.guard = guard
	return nil
}

func addInstalledRock(s *scenarioState, name, rawVersion string, deps []string) error {
	if err := ensureGuard(s); err != nil {
		return err
	}
	v, err := version.Parse(rawVersion)
	if err != nil {
		return err
	}

	var depIDs []lockfile.LocalPackageId
	for _, dep := range deps {
		id, ok := s.installedIDs[dep]
		if !ok {
			return fmt.Errorf("dependency %q must be installed before %q", dep, name)
		}
		depIDs = append(depIDs, id)
	}

	pkg := lockfile.LocalPackage{Spec: lockfile.LocalPackageSpec{
		Name:    manifest.Normalize(name),
		Version: v,
		Deps:    depIDs,
	}}
	id := s.guard.Data().Add(pkg)
	s.installedIDs[name] = id
	return nil
}

func anInstalledRockWithNoDependencies(ctx context.Context, name, rawVersion string) error {
	return addInstalledRock(getState(ctx), name, rawVersion, nil)
}

func anInstalledRockDependingOn(ctx context.Context, name, rawVersion, dep, depVersion string) error {
	return addInstalledRock(getState(ctx), name, rawVersion, []string{dep})
}

func theLockfileIsFlushed(ctx context.Context) error {
	return getState(ctx).guard.Flush()
}

func iComputeTheSyncSpecForRequirement(ctx context.Context, name string) error {
	s := getState(ctx)
	req, err := version.ParseReq("")
	if err != nil {
		return err
	}
	s.syncSpec = s.guard.Data().PackageSyncSpec([]manifest.PackageReq{
		{Name: manifest.Normalize(name), Req: req},
	})
	return nil
}

func iComputeTheSyncSpecForNoRequirements(ctx context.Context) error {
	s := getState(ctx)
	s.syncSpec = s.guard.Data().PackageSyncSpec(nil)
	return nil
}

func isNotInTheSyncSpecsRemovalSet(ctx context.Context, name string) error {
	s := getState(ctx)
	id, ok := s.installedIDs[name]
	if !ok {
		return fmt.Errorf("no installed rock named %q", name)
	}
	for _, removed := range s.syncSpec.ToRemove {
		if removed == id {
			return fmt.Errorf("expected %q to survive sync, but it was marked for removal", name)
		}
	}
	return nil
}

func isInTheSyncSpecsRemovalSet(ctx context.Context, name string) error {
	s := getState(ctx)
	id, ok := s.installedIDs[name]
	if !ok {
		return fmt.Errorf("no installed rock named %q", name)
	}
	for _, removed := range s.syncSpec.ToRemove {
		if removed == id {
			return nil
		}
	}
	return fmt.Errorf("expected %q to be marked for removal, but it was kept", name)
}
