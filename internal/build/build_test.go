package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lux-pm/lux/internal/backend"
	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/fetch"
	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/platform"
	"github.com/lux-pm/lux/internal/progress"
	"github.com/lux-pm/lux/internal/resolver"
	"github.com/lux-pm/lux/internal/version"
)

// fakeFetcher populates the staging directory with a single fixture .lua
// file and reports a deterministic integrity, standing in for the real
// SourceFetcher so these tests never touch the network or git.
type fakeFetcher struct{}

func (fakeFetcher) Fetch(ctx context.Context, stagingDir string, pkg fetch.PackageRef, spec manifest.SourceSpec, pinnedURL string, sink progress.Sink) (fetch.Result, error) {
	if err := os.WriteFile(filepath.Join(stagingDir, "foo.lua"), []byte("return {}\n"), 0o644); err != nil {
		return fetch.Result{}, err
	}
	return fetch.Result{}, nil
}

func testManifest(t *testing.T) *manifest.ValidatedManifest {
	t.Helper()
	v, err := version.Parse("1.0.0-1")
	if err != nil {
		t.Fatal(err)
	}
	luaReq, err := version.ParseReq("")
	if err != nil {
		t.Fatal(err)
	}
	return &manifest.ValidatedManifest{
		Package: manifest.Normalize("foo"),
		Version: v,
		Source:  platform.NewPerPlatform(manifest.SourceSpec{Kind: "file", URL: "."}),
		Build: platform.NewPerPlatform(manifest.BuildSpec{
			Type: "builtin",
			Modules: manifest.Modules{
				"foo": manifest.ModuleSpec{Kind: manifest.ModuleSourcePath, SourcePath: "foo.lua"},
			},
		}),
		ExternalDependencies: platform.NewPerPlatform(manifest.ExternalDeps{}),
		Dependencies:         platform.NewPerPlatform(manifest.Deps{}),
		LuaReq:               luaReq,
	}
}

func testPipeline(t *testing.T, lock *lockfile.LocalPackageLock) *Pipeline {
	t.Helper()
	cfg := &config.Config{InstallRoot: t.TempDir(), RegistryURL: "https://example.invalid"}
	return New(cfg, fakeFetcher{}, backend.LuaInstallation{Version: "5.1.0"}, lock, t.TempDir(), progress.NoopSink{})
}

func TestBuildOneInstallsBuiltinModule(t *testing.T) {
	p := testPipeline(t, nil)
	m := testManifest(t)
	spec := resolver.InstallSpec{
		ID:          lockfile.NewLocalPackageId(m.Package, m.Version, false, ""),
		Requirement: manifest.PackageReq{Name: m.Package},
		Version:     m.Version,
		Rockspec:    []byte("package = \"foo\"\n"),
		Manifest:    m,
	}

	pkg, err := p.buildOne(context.Background(), spec)
	if err != nil {
		t.Fatalf("buildOne: %v", err)
	}
	if pkg.Spec.Name != m.Package {
		t.Errorf("pkg.Spec.Name = %q, want %q", pkg.Spec.Name, m.Package)
	}

	layout := DeriveLayout(p.Config, p.Lua.Version, spec.ID)
	if _, err := os.Stat(filepath.Join(layout.Src, "foo.lua")); err != nil {
		t.Errorf("expected foo.lua installed: %v", err)
	}
	if _, err := os.Stat(layout.RockspecPath); err != nil {
		t.Errorf("expected rockspec persisted: %v", err)
	}
}

func TestBuildOneRejectsUnsatisfiableLuaVersion(t *testing.T) {
	p := testPipeline(t, nil)
	m := testManifest(t)
	req, err := version.ParseReq("5.4")
	if err != nil {
		t.Fatal(err)
	}
	m.LuaReq = req

	spec := resolver.InstallSpec{
		ID:       lockfile.NewLocalPackageId(m.Package, m.Version, false, ""),
		Version:  m.Version,
		Rockspec: []byte("package = \"foo\"\n"),
		Manifest: m,
	}

	if _, err := p.buildOne(context.Background(), spec); err == nil {
		t.Error("expected a LuaVersionUnsupportedError")
	}
}

func TestBuildAllSkipsPreResolvedEntries(t *testing.T) {
	p := testPipeline(t, nil)

	specs := []resolver.InstallSpec{
		{PreResolved: true, ID: lockfile.LocalPackageId("deadbeef"), Requirement: manifest.PackageReq{Name: manifest.Normalize("bar")}},
	}

	path := filepath.Join(t.TempDir(), "lux.lock")
	lockf, err := lockfile.OpenLockfile(path)
	if err != nil {
		t.Fatal(err)
	}
	g, err := lockf.Lock()
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	if err := p.BuildAll(context.Background(), specs, g); err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
}

func newLockedGuard(t *testing.T) *lockfile.Guard {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lux.lock")
	lockf, err := lockfile.OpenLockfile(path)
	if err != nil {
		t.Fatal(err)
	}
	g, err := lockf.Lock()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestBuildOneSkipsWhenAlreadyInstalledUnderNoForce(t *testing.T) {
	g := newLockedGuard(t)
	m := testManifest(t)
	id := lockfile.NewLocalPackageId(m.Package, m.Version, false, "")
	g.Data().Add(lockfile.LocalPackage{Spec: lockfile.LocalPackageSpec{Name: m.Package, Version: m.Version}})

	p := testPipeline(t, g.Data())
	spec := resolver.InstallSpec{
		ID:          id,
		Behavior:    resolver.NoForce,
		Requirement: manifest.PackageReq{Name: m.Package},
		Version:     m.Version,
		Rockspec:    []byte("package = \"foo\"\n"),
		Manifest:    m,
	}

	pkg, err := p.buildOne(context.Background(), spec)
	if err != nil {
		t.Fatalf("buildOne: %v", err)
	}
	if pkg.Spec.Name != m.Package {
		t.Errorf("pkg.Spec.Name = %q, want %q", pkg.Spec.Name, m.Package)
	}

	layout := DeriveLayout(p.Config, p.Lua.Version, id)
	if _, err := os.Stat(filepath.Join(layout.Src, "foo.lua")); err == nil {
		t.Error("expected the skip-if-installed gate to avoid fetching or building")
	}
}

func TestBuildOneRebuildsUnderForceEvenWhenInstalled(t *testing.T) {
	g := newLockedGuard(t)
	m := testManifest(t)
	id := lockfile.NewLocalPackageId(m.Package, m.Version, false, "")
	g.Data().Add(lockfile.LocalPackage{Spec: lockfile.LocalPackageSpec{Name: m.Package, Version: m.Version}})

	p := testPipeline(t, g.Data())
	spec := resolver.InstallSpec{
		ID:          id,
		Behavior:    resolver.Force,
		Requirement: manifest.PackageReq{Name: m.Package},
		Version:     m.Version,
		Rockspec:    []byte("package = \"foo\"\n"),
		Manifest:    m,
	}

	if _, err := p.buildOne(context.Background(), spec); err != nil {
		t.Fatalf("buildOne: %v", err)
	}

	layout := DeriveLayout(p.Config, p.Lua.Version, id)
	if _, err := os.Stat(filepath.Join(layout.Src, "foo.lua")); err != nil {
		t.Errorf("expected Force to re-fetch and reinstall: %v", err)
	}
}

func TestDeriveBuildDirUsesSoleTopLevelDirectory(t *testing.T) {
	staging := t.TempDir()
	if err := os.MkdirAll(filepath.Join(staging, "pkg-1.0"), 0o755); err != nil {
		t.Fatal(err)
	}

	dir, err := deriveBuildDir(staging, manifest.SourceSpec{})
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(staging, "pkg-1.0") {
		t.Errorf("deriveBuildDir = %q, want the sole top-level directory", dir)
	}
}

func TestDeriveBuildDirUsesStagingWhenAmbiguous(t *testing.T) {
	staging := t.TempDir()
	if err := os.WriteFile(filepath.Join(staging, "a.lua"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(staging, "b.lua"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	dir, err := deriveBuildDir(staging, manifest.SourceSpec{})
	if err != nil {
		t.Fatal(err)
	}
	if dir != staging {
		t.Errorf("deriveBuildDir = %q, want staging itself", dir)
	}
}

func TestDeriveBuildDirHonorsExplicitSourceDir(t *testing.T) {
	staging := t.TempDir()
	dir, err := deriveBuildDir(staging, manifest.SourceSpec{Dir: "nested"})
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(staging, "nested") {
		t.Errorf("deriveBuildDir = %q, want staging/nested", dir)
	}
}
