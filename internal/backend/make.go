package backend

import (
	"context"
	"sort"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

// MakeBackend drives plain `make`: a build pass with build_target and the
// rockspec variables merged with build_variables, then an install pass with
// install_target and install_variables. Either pass is skippable.
type MakeBackend struct{}

func (MakeBackend) Run(ctx context.Context, layout Layout, noInstall bool, lua LuaInstallation, cfg *config.Config, buildDir string, spec manifest.BuildSpec, sink progress.Sink) (BuildInfo, error) {
	if !spec.NoBuildPass {
		args := makeArgs(spec.BuildTarget, mergeVars(spec.Variables, spec.BuildVariables))
		var err error
		sink.Map(func(bar progress.Bar) {
			bar.SetMessage("make " + spec.BuildTarget)
			defer bar.FinishAndClear()
			_, err = runCommand(ctx, "make", buildDir, nil, "make", args...)
		})
		if err != nil {
			return BuildInfo{}, err
		}
	}

	if !noInstall && !spec.NoInstallPass {
		target := spec.InstallTarget
		if target == "" {
			target = "install"
		}
		args := makeArgs(target, mergeVars(spec.Variables, spec.InstallVariables))
		var err error
		sink.Map(func(bar progress.Bar) {
			bar.SetMessage("make " + target)
			defer bar.FinishAndClear()
			_, err = runCommand(ctx, "make", buildDir, nil, "make", args...)
		})
		if err != nil {
			return BuildInfo{}, err
		}
	}

	return BuildInfo{}, nil
}

func makeArgs(target string, vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		args = append(args, k+"="+vars[k])
	}
	if target != "" {
		args = append(args, target)
	}
	return args
}

func mergeVars(base, over map[string]string) map[string]string {
	result := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range over {
		result[k] = v
	}
	return result
}
