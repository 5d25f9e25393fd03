package backend

import (
	"context"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

// CommandBackend runs two user-supplied shell commands in the build
// directory: build_command, then (unless install is suppressed)
// install_command.
type CommandBackend struct{}

func (CommandBackend) Run(ctx context.Context, layout Layout, noInstall bool, lua LuaInstallation, cfg *config.Config, buildDir string, spec manifest.BuildSpec, sink progress.Sink) (BuildInfo, error) {
	if spec.BuildCommand != "" {
		var err error
		sink.Map(func(bar progress.Bar) {
			bar.SetMessage(spec.BuildCommand)
			defer bar.FinishAndClear()
			_, err = runCommand(ctx, "command", buildDir, nil, "sh", "-c", spec.BuildCommand)
		})
		if err != nil {
			return BuildInfo{}, err
		}
	}

	if !noInstall && spec.InstallCommand != "" {
		var err error
		sink.Map(func(bar progress.Bar) {
			bar.SetMessage(spec.InstallCommand)
			defer bar.FinishAndClear()
			_, err = runCommand(ctx, "command", buildDir, nil, "sh", "-c", spec.InstallCommand)
		})
		if err != nil {
			return BuildInfo{}, err
		}
	}

	return BuildInfo{}, nil
}
