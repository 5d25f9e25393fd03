package backend

import (
	"context"
	"fmt"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
)

// ExternalBackend is the LuaRock-backend variant: a named external build
// backend program, looked up on PATH and invoked by a fixed shell-interface
// contract (`<name> build <build_dir> <install_prefix>` followed by
// `<name> install <build_dir> <install_prefix>` unless install is
// suppressed). The build pipeline does not install the backend program or
// any other build dependency before invoking it. Failures surface as
// errs.LuarocksBuildError.
type ExternalBackend struct {
	Name string
}

func (b ExternalBackend) Run(ctx context.Context, layout Layout, noInstall bool, lua LuaInstallation, cfg *config.Config, buildDir string, spec manifest.BuildSpec, sink progress.Sink) (BuildInfo, error) {
	var err error
	sink.Map(func(bar progress.Bar) {
		bar.SetMessage(fmt.Sprintf("%s build", b.Name))
		defer bar.FinishAndClear()
		_, err = runCommand(ctx, b.Name, buildDir, nil, b.Name, "build", buildDir, layout.Lib)
	})
	if err != nil {
		return BuildInfo{}, &errs.LuarocksBuildError{Backend: b.Name, Err: err}
	}

	if !noInstall {
		sink.Map(func(bar progress.Bar) {
			bar.SetMessage(fmt.Sprintf("%s install", b.Name))
			defer bar.FinishAndClear()
			_, err = runCommand(ctx, b.Name, buildDir, nil, b.Name, "install", buildDir, layout.Lib)
		})
		if err != nil {
			return BuildInfo{}, &errs.LuarocksBuildError{Backend: b.Name, Err: err}
		}
	}

	return BuildInfo{}, nil
}
