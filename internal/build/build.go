// Package build implements the build pipeline (orchestration component):
// turning one resolved InstallSpec into an installed, lockfile-committed
// LocalPackage. It wires together external-dependency detection, the
// SourceFetcher capability, patch application, backend dispatch, and
// declarative artifact installation, in the fixed eleven-step sequence the
// rockspec build model requires.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lux-pm/lux/internal/backend"
	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/fetch"
	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/platform"
	"github.com/lux-pm/lux/internal/progress"
	"github.com/lux-pm/lux/internal/resolver"
	"github.com/lux-pm/lux/internal/version"
)

// Pipeline holds the collaborators a build needs beyond what each
// InstallSpec already carries: the fetcher, the configured Lua toolchain,
// the lockfile consulted by the skip-if-installed gate, filesystem roots,
// and a progress sink.
type Pipeline struct {
	Config     *config.Config
	Fetcher    fetch.SourceFetcher
	Lua        backend.LuaInstallation
	Lock       *lockfile.LocalPackageLock
	StagingDir string
	Sink       progress.Sink
}

// New builds a Pipeline from its collaborators. lock is consulted read-only
// by the skip-if-installed gate; it is safe to pass the same
// *lockfile.LocalPackageLock a Guard protects, since BuildAll only reads it
// concurrently and defers every write until after every build has finished.
func New(cfg *config.Config, fetcher fetch.SourceFetcher, lua backend.LuaInstallation, lock *lockfile.LocalPackageLock, stagingDir string, sink progress.Sink) *Pipeline {
	return &Pipeline{Config: cfg, Fetcher: fetcher, Lua: lua, Lock: lock, StagingDir: stagingDir, Sink: sink}
}

// BuildAll runs every non-pre-resolved InstallSpec's build concurrently,
// each writing to its own disjoint staging and install-tree subdirectory,
// then serializes all resulting LocalPackage/dependency-edge additions
// under a single lockfile write guard — matching the install phase's
// concurrency contract: builds fan out freely, the lockfile mutates once.
func (p *Pipeline) BuildAll(ctx context.Context, specs []resolver.InstallSpec, guard *lockfile.Guard) error {
	type outcome struct {
		spec resolver.InstallSpec
		pkg  lockfile.LocalPackage
		err  error
	}

	results := make([]outcome, len(specs))
	var wg sync.WaitGroup
	for i, spec := range specs {
		if spec.PreResolved {
			continue
		}
		wg.Add(1)
		go func(i int, spec resolver.InstallSpec) {
			defer wg.Done()
			pkg, err := p.buildOne(ctx, spec)
			results[i] = outcome{spec: spec, pkg: pkg, err: err}
		}(i, spec)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return r.err
		}
	}

	data := guard.Data()
	ids := make(map[manifest.PackageName]lockfile.LocalPackageId, len(specs))
	for i, spec := range specs {
		if spec.PreResolved {
			ids[spec.Requirement.Name] = spec.ID
			continue
		}
		r := results[i]
		data.Add(r.pkg)
		ids[spec.Requirement.Name] = r.pkg.Id()
	}

	for i, spec := range specs {
		if spec.PreResolved || spec.Manifest == nil {
			continue
		}
		parent := ids[spec.Requirement.Name]
		for _, dep := range spec.Manifest.Dependencies.Get(platform.Current()) {
			childID, ok := ids[dep.Name]
			if !ok {
				continue
			}
			if err := data.AddDependency(parent, childID); err != nil {
				return err
			}
		}
	}

	return nil
}

// buildOne runs the eleven-step sequence for a single freshly resolved
// package, returning the LocalPackage ready to be added to the lockfile.
// Idempotent per LocalPackageId: a second call against the same staging
// root and manifest produces the same artifacts.
func (p *Pipeline) buildOne(ctx context.Context, spec resolver.InstallSpec) (lockfile.LocalPackage, error) {
	if spec.Manifest == nil {
		return lockfile.LocalPackage{}, fmt.Errorf("build %s: no manifest", spec.Requirement.Name)
	}
	m := spec.Manifest
	id := spec.ID

	// 1. External-dependency detection.
	if err := detectExternalDeps(m.ExternalDependencies.Get(platform.Current())); err != nil {
		return lockfile.LocalPackage{}, err
	}

	// 2. Lua-version compatibility check.
	req := m.LuaReq
	luaVersion, err := version.Parse(p.Lua.Version)
	if err != nil {
		return lockfile.LocalPackage{}, fmt.Errorf("parse configured lua version %q: %w", p.Lua.Version, err)
	}
	if !req.IsAny() && !req.Matches(luaVersion) {
		return lockfile.LocalPackage{}, &errs.LuaVersionUnsupportedError{Configured: p.Lua.Version, Requirement: req.String()}
	}

	// 3. Skip-if-installed gate: under NoForce, a resolved id already
	// present in the lockfile is reused as-is, with no fetch or rebuild.
	if spec.Behavior == resolver.NoForce && p.Lock != nil {
		if existing, ok := p.Lock.Get(id); ok {
			return existing, nil
		}
	}

	layout := DeriveLayout(p.Config, p.Lua.Version, id)
	stagingDir := filepath.Join(p.StagingDir, string(id))
	defer os.RemoveAll(stagingDir)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return lockfile.LocalPackage{}, fmt.Errorf("create staging dir: %w", err)
	}

	// 4. Fetch; compute rockspec and source integrity.
	sourceSpec := m.Source.Get(platform.Current())
	pkgRef := fetch.PackageRef{Name: m.Package, Version: spec.Version.String()}
	result, err := p.Fetcher.Fetch(ctx, stagingDir, pkgRef, sourceSpec, "", p.Sink)
	if err != nil {
		return lockfile.LocalPackage{}, err
	}
	rockspecHash, err := rockspecIntegrity(spec.Rockspec)
	if err != nil {
		return lockfile.LocalPackage{}, err
	}

	// 5. Derive build directory.
	buildDir, err := deriveBuildDir(stagingDir, sourceSpec)
	if err != nil {
		return lockfile.LocalPackage{}, err
	}

	// 6. Apply patches.
	buildSpec := m.Build.Get(platform.Current())
	if err := applyPatches(buildDir, buildSpec.Patches); err != nil {
		return lockfile.LocalPackage{}, err
	}

	// 7. Dispatch to backend.
	be := backend.Select(buildSpec.Type)
	info, err := be.Run(ctx, layout, false, p.Lua, p.Config, buildDir, buildSpec, p.Sink)
	if err != nil {
		return lockfile.LocalPackage{}, err
	}

	// 8. Install artifacts.
	if err := installArtifacts(buildDir, layout, buildSpec.Install); err != nil {
		return lockfile.LocalPackage{}, err
	}

	// 9. Copy directories.
	if err := copyDeclaredDirectories(buildDir, layout, buildSpec.CopyDirectories); err != nil {
		return lockfile.LocalPackage{}, err
	}

	// 10. Persist rockspec text.
	if err := os.MkdirAll(filepath.Dir(layout.RockspecPath), 0o755); err != nil {
		return lockfile.LocalPackage{}, fmt.Errorf("create layout root: %w", err)
	}
	if err := os.WriteFile(layout.RockspecPath, spec.Rockspec, 0o644); err != nil {
		return lockfile.LocalPackage{}, fmt.Errorf("persist rockspec: %w", err)
	}

	// 11. Build the LocalPackage; the caller commits it to the lockfile
	// under a single write guard once every concurrent build has finished.
	pkg := lockfile.LocalPackage{
		Spec: lockfile.LocalPackageSpec{
			Name:       m.Package,
			Version:    spec.Version,
			Pinned:     false,
			Constraint: spec.Requirement.Req.String(),
			Binaries:   info.Binaries,
		},
		Source: lockfile.RemoteSource{Kind: lockfile.SourceRockspec, Name: p.Config.RegistryURL},
		Hashes: lockfile.Hashes{Rockspec: rockspecHash, Source: result.Integrity},
	}
	if result.CanonicalSourceURL != "" {
		pkg.SourceURL = &lockfile.RemoteSourceUrl{URL: result.CanonicalSourceURL}
	}
	return pkg, nil
}

// deriveBuildDir implements step 5: an explicit source.dir wins; else, if
// staging unpacked to exactly one top-level directory, that directory is
// the build root; else staging itself is.
func deriveBuildDir(stagingDir string, source manifest.SourceSpec) (string, error) {
	if source.Dir != "" {
		return filepath.Join(stagingDir, source.Dir), nil
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return "", fmt.Errorf("read staging dir: %w", err)
	}
	var dirs []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		}
	}
	if len(entries) == 1 && len(dirs) == 1 {
		return filepath.Join(stagingDir, dirs[0].Name()), nil
	}
	return stagingDir, nil
}

// copyDeclaredDirectories implements step 9: every copy_directories entry
// except doc/docs goes to layout.Etc; doc/docs (whichever exists) goes to
// layout.Doc.
func copyDeclaredDirectories(buildDir string, layout backend.Layout, names []string) error {
	for _, name := range names {
		if name == "doc" || name == "docs" {
			continue
		}
		src := filepath.Join(buildDir, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyDirectory(src, filepath.Join(layout.Etc, name)); err != nil {
			return fmt.Errorf("copy_directories %s: %w", name, err)
		}
	}

	for _, name := range []string{"doc", "docs"} {
		src := filepath.Join(buildDir, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyDirectory(src, layout.Doc); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
		break
	}
	return nil
}
