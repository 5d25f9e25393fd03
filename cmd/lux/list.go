package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/lockfile"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed rocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Default()
		if err != nil {
			return err
		}

		lf, err := lockfile.OpenLockfile(lockfilePath(cfg))
		if err != nil {
			return err
		}

		byName := lf.Snapshot().List()
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, string(name))
		}
		sort.Strings(names)

		if len(names) == 0 {
			fmt.Println("no rocks installed")
			return nil
		}
		for _, name := range names {
			for _, pkg := range byName[name] {
				fmt.Printf("%s %s\n", name, pkg.Spec.Version)
			}
		}
		return nil
	},
}

func lockfilePath(cfg *config.Config) string {
	return filepath.Join(cfg.HomeDir, "lux.lock")
}
