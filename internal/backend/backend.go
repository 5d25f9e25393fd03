// Package backend implements the BuildBackend contract: turning a derived
// build directory plus a manifest's build table into compiled artifacts
// placed under an install layout. The build pipeline (internal/build)
// selects one backend per package by its manifest's build.type and invokes
// it after fetch and patch have prepared the build directory.
package backend

import (
	"context"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/platform"
	"github.com/lux-pm/lux/internal/progress"
)

// Layout names the directories a resolved package's artifacts are installed
// under, rooted at config.Config.InstallRoot/<lua version>/<LocalPackageId>.
type Layout struct {
	Src          string // Lua modules
	Lib          string // compiled dynamic libraries
	Bin          string // installed executables
	Etc          string // copied auxiliary directories (build.copy_directories)
	Conf         string // configuration files
	Doc          string // copied doc/docs directory
	RockspecPath string // where the rockspec text is persisted
}

// LuaInstallation names the Lua toolchain a backend builds against.
type LuaInstallation struct {
	Version    string
	Executable string
	IncludeDir string
	LibDir     string
}

// BuildInfo is what a backend hands back after a successful run: the names
// of any executables it installed directly into layout.Bin. Every backend in
// this package returns it with Binaries empty. Declarative
// build.install.bin entries are handled by the build pipeline itself, not
// by a backend.
type BuildInfo struct {
	Binaries []string
}

// BuildBackend is the contract every backend variant implements.
type BuildBackend interface {
	Run(ctx context.Context, layout Layout, noInstall bool, lua LuaInstallation, cfg *config.Config, buildDir string, spec manifest.BuildSpec, sink progress.Sink) (BuildInfo, error)
}

// Select returns the BuildBackend for a manifest's declared build.type.
// External names (anything other than the five built-in kinds) resolve to
// the LuaRock-backend variant, which shells out to a named external build
// backend package by its shell-interface contract.
func Select(buildType string) BuildBackend {
	switch buildType {
	case "builtin", "":
		return BuiltinBackend{}
	case "make":
		return MakeBackend{}
	case "cmake":
		return CMakeBackend{}
	case "command":
		return CommandBackend{}
	case "rust-mlua":
		return RustMluaBackend{}
	default:
		return ExternalBackend{Name: buildType}
	}
}

// DylibExt returns the dynamic-library filename extension for the current
// platform, exported for the build pipeline's own install.lib compile step.
func DylibExt() string { return dylibExt() }

// dylibExt returns the dynamic-library filename extension for the current
// platform.
func dylibExt() string {
	switch platform.Current().String() {
	case "windows":
		return "dll"
	case "macosx":
		return "dylib"
	default:
		return "so"
	}
}
