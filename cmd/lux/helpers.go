package main

import (
	"os/exec"
	"strings"

	"github.com/lux-pm/lux/internal/backend"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/version"
)

// parsePackageReq splits a CLI argument like "penlight" or "penlight >= 1.5"
// into a package requirement, following the same "name, then optional
// requirement text" shape rockspec dependency strings use.
func parsePackageReq(raw string) (manifest.PackageReq, error) {
	trimmed := strings.TrimSpace(raw)
	idx := strings.IndexAny(trimmed, " \t")
	var name, reqStr string
	if idx < 0 {
		name = trimmed
	} else {
		name = trimmed[:idx]
		reqStr = strings.TrimSpace(trimmed[idx+1:])
	}
	req, err := version.ParseReq(reqStr)
	if err != nil {
		return manifest.PackageReq{}, err
	}
	return manifest.PackageReq{Name: manifest.Normalize(name), Req: req}, nil
}

// detectLua locates a Lua interpreter on PATH and its pkg-config-reported
// include/lib directories, following the same pkg-config-first strategy
// internal/build/externaldeps.go uses for declared external_dependencies.
// Falls back to bare names when pkg-config has no opinion, trusting the
// backend's own compiler invocation to resolve them from the environment.
func detectLua() backend.LuaInstallation {
	exe := "lua"
	for _, candidate := range []string{"lua5.1", "lua5.3", "lua5.4", "lua"} {
		if _, err := exec.LookPath(candidate); err == nil {
			exe = candidate
			break
		}
	}

	lua := backend.LuaInstallation{Executable: exe, Version: luaVersionOf(exe)}

	for _, pc := range []string{"lua5.1", "lua5.3", "lua5.4", "lua"} {
		if out, err := exec.Command("pkg-config", "--variable=includedir", pc).Output(); err == nil {
			lua.IncludeDir = strings.TrimSpace(string(out))
		}
		if out, err := exec.Command("pkg-config", "--variable=libdir", pc).Output(); err == nil {
			lua.LibDir = strings.TrimSpace(string(out))
		}
		if lua.IncludeDir != "" || lua.LibDir != "" {
			break
		}
	}

	return lua
}

func luaVersionOf(exe string) string {
	out, err := exec.Command(exe, "-v").CombinedOutput()
	if err != nil {
		return ""
	}
	fields := strings.Fields(string(out))
	for _, f := range fields {
		if len(f) > 0 && (f[0] >= '0' && f[0] <= '9') {
			return f
		}
	}
	return ""
}
