package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/manifest"
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an installed rock from the lockfile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Default()
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

		name := manifest.Normalize(args[0])
		anyReq, err := parsePackageReq(args[0])
		if err != nil {
			return err
		}
		pkg, ok := guard.Data().HasRock(name, anyReq.Req, nil)
		if !ok {
			return &errs.PackageNotFoundError{Requirement: args[0]}
		}

		guard.Data().RemoveByID(pkg.Id())
		if err := guard.Flush(); err != nil {
			return err
		}

		fmt.Printf("removed %s %s\n", name, pkg.Spec.Version)
		return nil
	},
}
