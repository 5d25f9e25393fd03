package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

// BuiltinBackend compiles each declared module directly: a .lua source path
// installs as a Lua module, a C source (or set of C sources) compiles to a
// dynamic library via the configured C compiler, and a ModulePaths entry
// compiles multiple sources with explicit defines/incdirs/libdirs/libraries.
type BuiltinBackend struct{}

// modulePath maps a dotted module name to a filesystem path with the given
// extension: dots become the OS path separator, and a bare package name
// (no dots) that names a directory module maps to "<name>/init.<ext>".
func modulePath(name, ext string, isDirModule bool) string {
	rel := strings.ReplaceAll(name, ".", string(filepath.Separator))
	if isDirModule {
		return filepath.Join(rel, "init."+ext)
	}
	return rel + "." + ext
}

func (BuiltinBackend) Run(ctx context.Context, layout Layout, noInstall bool, lua LuaInstallation, cfg *config.Config, buildDir string, spec manifest.BuildSpec, sink progress.Sink) (BuildInfo, error) {
	var info BuildInfo

	for name, mod := range spec.Modules {
		var err error
		switch mod.Kind {
		case manifest.ModuleSourcePath:
			err = installSourcePath(ctx, layout, lua, buildDir, name, mod.SourcePath)
		case manifest.ModuleSourcePaths:
			err = compileModule(ctx, layout, lua, buildDir, name, mod.SourcePaths, nil, nil, nil, nil)
		default:
			p := mod.ModulePaths
			err = compileModule(ctx, layout, lua, buildDir, name, p.Sources, p.Defines, p.Incdirs, p.Libdirs, p.Libraries)
		}
		if err != nil {
			return BuildInfo{}, fmt.Errorf("build module %s: %w", name, err)
		}
	}

	return info, nil
}

// installSourcePath handles the single-path ModuleSourcePath shape: a .lua
// file is copied as-is; anything else is treated as a single C source and
// compiled to a dynamic library.
func installSourcePath(ctx context.Context, layout Layout, lua LuaInstallation, buildDir, name, path string) error {
	if strings.HasSuffix(path, ".lua") {
		dest := filepath.Join(layout.Src, modulePath(name, "lua", false))
		return copyModuleFile(filepath.Join(buildDir, path), dest)
	}
	return compileModule(ctx, layout, lua, buildDir, name, []string{path}, nil, nil, nil, nil)
}

func compileModule(ctx context.Context, layout Layout, lua LuaInstallation, buildDir, name string, sources, defines, incdirs, libdirs, libraries []string) error {
	if len(sources) == 0 {
		return fmt.Errorf("module %s declares no source files", name)
	}

	dest := filepath.Join(layout.Lib, modulePath(name, dylibExt(), false))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create lib directory: %w", err)
	}

	cc := compilerPath()
	args := []string{"-shared", "-fPIC", "-o", dest}
	for _, d := range defines {
		args = append(args, "-D"+d)
	}
	if lua.IncludeDir != "" {
		args = append(args, "-I"+lua.IncludeDir)
	}
	for _, inc := range incdirs {
		args = append(args, "-I"+inc)
	}
	if lua.LibDir != "" {
		args = append(args, "-L"+lua.LibDir)
	}
	for _, libdir := range libdirs {
		args = append(args, "-L"+libdir)
	}
	for _, src := range sources {
		args = append(args, filepath.Join(buildDir, src))
	}
	for _, lib := range libraries {
		args = append(args, "-l"+lib)
	}

	_, err := runCommand(ctx, "builtin", buildDir, nil, cc, args...)
	return err
}

func copyModuleFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create src directory: %w", err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	return os.WriteFile(dst, data, 0o644)
}

// compilerPath resolves the C compiler to invoke, preferring $CC so a
// toolchain configured via environment (e.g. a cross-compiler or zig cc
// wrapper) takes effect.
func compilerPath() string {
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}
	return "cc"
}
