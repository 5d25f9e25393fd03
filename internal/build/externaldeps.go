package build

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/manifest"
)

// genericSearchPrefixes are probed when neither pkg-config nor an
// environment-variable override locates a dependency.
var genericSearchPrefixes = []string{"/usr/local", "/usr", "/opt/local"}

// detectExternalDeps probes pkg-config, then the <NAME>_DIR/_INCDIR/_LIBDIR
// environment variables, then a handful of generic install prefixes, for
// each declared external dependency. The first strategy that locates the
// header or library wins; a dependency only fails once every strategy has
// been tried.
func detectExternalDeps(deps manifest.ExternalDeps) error {
	for name, spec := range deps {
		if detectOne(name, spec) {
			continue
		}
		return &errs.ExternalDepNotFoundError{Name: strings.ToUpper(name)}
	}
	return nil
}

func detectOne(name string, spec manifest.ExternalDependencySpec) bool {
	if pkgConfigHas(name) {
		return true
	}

	dirVar, incdirVar, libdirVar := config.ExternalDepEnv(strings.ToUpper(name))
	candidates := []string{os.Getenv(dirVar)}
	if spec.Kind == manifest.ExternalHeader {
		candidates = append(candidates, os.Getenv(incdirVar))
	} else {
		candidates = append(candidates, os.Getenv(libdirVar))
	}
	for _, prefix := range genericSearchPrefixes {
		if spec.Kind == manifest.ExternalHeader {
			candidates = append(candidates, filepath.Join(prefix, "include"))
		} else {
			candidates = append(candidates, filepath.Join(prefix, "lib"))
		}
	}

	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, spec.Path)); err == nil {
			return true
		}
	}
	return false
}

// pkgConfigHas reports whether pkg-config knows the named module. Absence
// of the pkg-config binary itself is treated as "not found" rather than an
// error, deferring to the environment-variable fallback.
func pkgConfigHas(name string) bool {
	if _, err := exec.LookPath("pkg-config"); err != nil {
		return false
	}
	return exec.Command("pkg-config", "--exists", strings.ToLower(name)).Run() == nil
}
