package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lux-pm/lux/internal/build"
	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/fetch"
	"github.com/lux-pm/lux/internal/index/githubindex"
	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/luabridge"
	"github.com/lux-pm/lux/internal/progress"
	"github.com/lux-pm/lux/internal/resolver"
)

var installForce bool

var installCmd = &cobra.Command{
	Use:   "install <name>[ <requirement>]...",
	Short: "Resolve, fetch, build, and install rocks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Default()
		if err != nil {
			return err
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}

		behavior := resolver.NoForce
		if installForce {
			behavior = resolver.Force
		}
		requests, err := parseInstallRequests(args, behavior)
		if err != nil {
			return err
		}

		lf, err := lockfile.OpenLockfile(lockfilePath(cfg))
		if err != nil {
			return err
		}
		guard, err := lf.Lock()
		if err != nil {
			return err
		}
		defer guard.Close()

		idx, err := githubindex.New(cfg)
		if err != nil {
			return err
		}

		scratchDir, err := os.MkdirTemp("", "lux-rockspec-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(scratchDir)

		evaluator := luabridge.New(os.Getenv("LUX_LUA_BRIDGE"))
		sink := progress.Default()

		r := resolver.New(idx, evaluator, guard.Data(), scratchDir, sink)
		specs, err := r.Resolve(cmd.Context(), requests)
		if err != nil {
			return err
		}

		stagingDir, err := os.MkdirTemp("", "lux-build-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(stagingDir)

		pipeline := build.New(cfg, fetch.New(cfg), detectLua(), guard.Data(), stagingDir, sink)
		if err := pipeline.BuildAll(cmd.Context(), specs, guard); err != nil {
			return err
		}

		if err := guard.Flush(); err != nil {
			return err
		}

		for _, spec := range specs {
			fmt.Printf("installed %s %s\n", spec.Requirement.Name, spec.Version)
		}
		return nil
	},
}

func init() {
	installCmd.Flags().BoolVar(&installForce, "force", false, "Rebuild and reinstall even if already present in the lockfile")
}

// parseInstallRequests turns each positional arg into one Request carrying
// behavior. A requirement with spaces (e.g. "penlight >= 1.5") must be
// passed as a single shell-quoted argument.
func parseInstallRequests(args []string, behavior resolver.BuildBehavior) ([]resolver.Request, error) {
	var requests []resolver.Request
	for _, arg := range args {
		req, err := parsePackageReq(arg)
		if err != nil {
			return nil, err
		}
		requests = append(requests, resolver.Request{Behavior: behavior, Req: req})
	}
	return requests, nil
}
