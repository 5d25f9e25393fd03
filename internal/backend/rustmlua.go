package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

// RustMluaBackend builds a native dynamic library per declared module from a
// target_path-rooted cargo workspace, with cargo's own --locked
// reproducibility flag, then copies lib<module>.<dylib-ext> into
// layout.Lib and any declared include files verbatim.
type RustMluaBackend struct{}

func (RustMluaBackend) Run(ctx context.Context, layout Layout, noInstall bool, lua LuaInstallation, cfg *config.Config, buildDir string, spec manifest.BuildSpec, sink progress.Sink) (BuildInfo, error) {
	workspaceDir := buildDir
	if spec.TargetPath != "" {
		workspaceDir = filepath.Join(buildDir, spec.TargetPath)
	}
	if _, err := os.Stat(filepath.Join(workspaceDir, "Cargo.toml")); err != nil {
		return BuildInfo{}, fmt.Errorf("Cargo.toml not found at %s: %w", workspaceDir, err)
	}

	args := []string{"build", "--release", "--locked"}
	if !spec.DefaultFeatures {
		args = append(args, "--no-default-features")
	}
	for _, feature := range spec.Features {
		args = append(args, "--features", feature)
	}

	var err error
	sink.Map(func(bar progress.Bar) {
		bar.SetMessage("cargo build --release")
		defer bar.FinishAndClear()
		_, err = runCommand(ctx, "rust-mlua", workspaceDir, cargoEnv(), "cargo", args...)
	})
	if err != nil {
		return BuildInfo{}, err
	}

	if !noInstall {
		for name := range spec.Modules {
			libName := "lib" + moduleLeaf(name) + "." + dylibExt()
			src := filepath.Join(workspaceDir, "target", "release", libName)
			dest := filepath.Join(layout.Lib, modulePath(name, dylibExt(), false))
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return BuildInfo{}, fmt.Errorf("create lib directory: %w", err)
			}
			data, err := os.ReadFile(src)
			if err != nil {
				return BuildInfo{}, fmt.Errorf("read built library %s: %w", src, err)
			}
			if err := os.WriteFile(dest, data, 0o755); err != nil {
				return BuildInfo{}, fmt.Errorf("write %s: %w", dest, err)
			}
		}

		for _, include := range spec.Include {
			src := filepath.Join(workspaceDir, include)
			dest := filepath.Join(layout.Lib, include)
			data, err := os.ReadFile(src)
			if err != nil {
				return BuildInfo{}, fmt.Errorf("read include file %s: %w", src, err)
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return BuildInfo{}, fmt.Errorf("create include directory: %w", err)
			}
			if err := os.WriteFile(dest, data, 0o644); err != nil {
				return BuildInfo{}, fmt.Errorf("write %s: %w", dest, err)
			}
		}
	}

	return BuildInfo{}, nil
}

// moduleLeaf returns a dotted module name's last path component, the piece
// cargo's crate-name-to-library-filename convention uses.
func moduleLeaf(name string) string {
	leaf := name
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			leaf = name[i+1:]
			break
		}
	}
	return leaf
}

func cargoEnv() []string {
	env := os.Environ()
	return append(env, "CARGO_INCREMENTAL=0", "SOURCE_DATE_EPOCH=0")
}
