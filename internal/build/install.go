package build

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lux-pm/lux/internal/backend"
	"github.com/lux-pm/lux/internal/manifest"
)

// modulePath maps a dotted module name to a filesystem path with the given
// extension, mirroring the builtin backend's own mapping (dots become the
// path separator; a bare name maps to "<name>.<ext>").
func modulePath(name, ext string) string {
	rel := strings.ReplaceAll(name, ".", string(filepath.Separator))
	return rel + "." + ext
}

// installArtifacts walks build.install: Lua sources are copied verbatim,
// C sources are compiled to a dynamic library, and bin entries are copied
// preserving execute permission.
func installArtifacts(buildDir string, layout backend.Layout, install manifest.InstallSpec) error {
	for name, src := range install.Lua {
		if err := copyFile(filepath.Join(buildDir, src), filepath.Join(layout.Src, modulePath(name, "lua")), 0o644); err != nil {
			return fmt.Errorf("install.lua %s: %w", name, err)
		}
	}

	for name, src := range install.Lib {
		dest := filepath.Join(layout.Lib, modulePath(name, backend.DylibExt()))
		if err := compileToLibrary(buildDir, src, dest); err != nil {
			return fmt.Errorf("install.lib %s: %w", name, err)
		}
	}

	for name, src := range install.Bin {
		if err := copyFile(filepath.Join(buildDir, src), filepath.Join(layout.Bin, name), 0o755); err != nil {
			return fmt.Errorf("install.bin %s: %w", name, err)
		}
	}

	return nil
}

func compileToLibrary(buildDir, src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	cc := "cc"
	if v := os.Getenv("CC"); v != "" {
		cc = v
	}
	cmd := exec.Command(cc, "-shared", "-fPIC", "-o", dest, filepath.Join(buildDir, src))
	cmd.Dir = buildDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v: %s", err, out)
	}
	return nil
}

func copyFile(src, dest string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, mode)
}

func copyDirectory(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode())
	})
}
