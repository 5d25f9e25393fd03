package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

// CMakeBackend writes an inline CMakeLists.txt (when cmake_lists_content is
// set), configures with the rockspec's variable map, then runs skippable
// build and install passes.
type CMakeBackend struct{}

func (CMakeBackend) Run(ctx context.Context, layout Layout, noInstall bool, lua LuaInstallation, cfg *config.Config, buildDir string, spec manifest.BuildSpec, sink progress.Sink) (BuildInfo, error) {
	if spec.CMakeListsContent != "" {
		if err := os.WriteFile(filepath.Join(buildDir, "CMakeLists.txt"), []byte(spec.CMakeListsContent), 0o644); err != nil {
			return BuildInfo{}, fmt.Errorf("write CMakeLists.txt: %w", err)
		}
	}

	configureDir := filepath.Join(buildDir, "lux-cmake-build")
	if err := os.MkdirAll(configureDir, 0o755); err != nil {
		return BuildInfo{}, fmt.Errorf("create cmake build directory: %w", err)
	}

	configArgs := []string{"-S", buildDir, "-B", configureDir}
	keys := make([]string, 0, len(spec.Variables))
	for k := range spec.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		configArgs = append(configArgs, fmt.Sprintf("-D%s=%s", k, spec.Variables[k]))
	}

	var err error
	sink.Map(func(bar progress.Bar) {
		bar.SetMessage("cmake configure")
		defer bar.FinishAndClear()
		_, err = runCommand(ctx, "cmake", buildDir, nil, "cmake", configArgs...)
	})
	if err != nil {
		return BuildInfo{}, err
	}

	if !spec.NoBuildPass {
		sink.Map(func(bar progress.Bar) {
			bar.SetMessage("cmake --build")
			defer bar.FinishAndClear()
			_, err = runCommand(ctx, "cmake", buildDir, nil, "cmake", "--build", configureDir)
		})
		if err != nil {
			return BuildInfo{}, err
		}
	}

	if !noInstall && !spec.NoInstallPass {
		sink.Map(func(bar progress.Bar) {
			bar.SetMessage("cmake --install")
			defer bar.FinishAndClear()
			_, err = runCommand(ctx, "cmake", buildDir, nil, "cmake", "--install", configureDir, "--prefix", layout.Lib)
		})
		if err != nil {
			return BuildInfo{}, err
		}
	}

	return BuildInfo{}, nil
}
