package functional

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"

	"github.com/lux-pm/lux/internal/backend"
	"github.com/lux-pm/lux/internal/build"
	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
	"github.com/lux-pm/lux/internal/resolver"
	"github.com/lux-pm/lux/internal/version"
)

// fixtureLuaVersion is the Lua toolchain the in-process build pipeline
// pretends to build against; no rockspec in this suite ever restricts it,
// so its exact value only matters for the install-tree path it derives.
const fixtureLuaVersion = "5.1.0"

func registerBuildSteps(ctx *godog.ScenarioContext) {
	ctx.Step(`^a registry package "([^"]*)" "([^"]*)" with a builtin lua module "([^"]*)" at source path "([^"]*)"$`, aRegistryBuiltinPackage)
	ctx.Step(`^its upstream source contains the file "([^"]*)" with content:$`, itsUpstreamSourceContainsTheFileWithContent)
	ctx.Step(`^I install "([^"]*)"$`, iInstall)
	ctx.Step(`^the install succeeds$`, theInstallSucceeds)
	ctx.Step(`^the installed tree contains the lua module "([^"]*)"$`, theInstalledTreeContainsTheLuaModule)
}

func aRegistryBuiltinPackage(ctx context.Context, name, pkgVersion, moduleName, sourcePath string) error {
	s := getState(ctx)
	ver, err := version.Parse(pkgVersion)
	if err != nil {
		return err
	}

	token := fmt.Sprintf("%s@%s", name, pkgVersion)
	s.index.add(name, ver, token)
	s.evaluator.set(token, manifest.RockspecTable{
		Package: name,
		Version: pkgVersion,
		Source:  manifest.SourceTable{Kind: "url", URL: "https://example.test/" + name + "-" + pkgVersion + ".tar.gz"},
		Build: manifest.BuildTable{
			Type: "builtin",
			Modules: map[string]manifest.ModuleEntryTable{
				moduleName: {SourcePath: sourcePath},
			},
		},
	})
	s.pendingPackage = name
	return nil
}

func itsUpstreamSourceContainsTheFileWithContent(ctx context.Context, path, content string) error {
	s := getState(ctx)
	s.pendingSourceFiles[path] = content
	return nil
}

func iInstall(ctx context.Context, name string) error {
	s := getState(ctx)
	s.fetcher.set(s.pendingPackage, s.pendingSourceFiles)

	s.cfg = &config.Config{InstallRoot: filepath.Join(s.root, "install")}

	lockPath := filepath.Join(s.root, "lux.lock")
	lf, err := lockfile.OpenLockfile(lockPath)
	if err != nil {
		return err
	}
	guard, err := lf.Lock()
	if err != nil {
		return err
	}
	defer guard.Close()

	scratchDir := filepath.Join(s.root, "scratch")
	stagingDir := filepath.Join(s.root, "staging")

	req, err := version.ParseReq("")
	if err != nil {
		return err
	}

	r := resolver.New(s.index, s.evaluator, guard.Data(), scratchDir, progress.Default())
	specs, err := r.Resolve(ctx, []resolver.Request{
		{Behavior: resolver.NoForce, Req: manifest.PackageReq{Name: manifest.Normalize(name), Req: req}},
	})
	if err != nil {
		s.installErr = err
		return nil
	}

	lua := backend.LuaInstallation{Version: fixtureLuaVersion}
	pipeline := build.New(s.cfg, s.fetcher, lua, guard.Data(), stagingDir, progress.Default())
	s.installErr = pipeline.BuildAll(ctx, specs, guard)
	s.installed = specs
	return nil
}

func theInstallSucceeds(ctx context.Context) error {
	s := getState(ctx)
	if s.installErr != nil {
		return fmt.Errorf("expected install to succeed, got: %w", s.installErr)
	}
	return nil
}

func theInstalledTreeContainsTheLuaModule(ctx context.Context, moduleName string) error {
	s := getState(ctx)
	if len(s.installed) == 0 {
		return fmt.Errorf("no install specs recorded")
	}
	layout := build.DeriveLayout(s.cfg, fixtureLuaVersion, s.installed[0].ID)
	path := filepath.Join(layout.Src, moduleName+".lua")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("expected installed module at %s: %w", path, err)
	}
	return nil
}
