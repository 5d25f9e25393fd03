package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/index/githubindex"
	"github.com/lux-pm/lux/internal/progress"
)

var searchCmd = &cobra.Command{
	Use:   "search <name>[ <requirement>]",
	Short: "Find the best remote match for a package requirement",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := parsePackageReq(joinArgs(args))
		if err != nil {
			return err
		}

		cfg, err := config.Default()
		if err != nil {
			return err
		}

		idx, err := githubindex.New(cfg)
		if err != nil {
			return err
		}

		remote, err := idx.Find(cmd.Context(), req, nil, progress.Default())
		if err != nil {
			return err
		}

		fmt.Printf("%s %s\n  rockspec: %s\n  source:   %s\n", remote.Name, remote.Version, remote.RockspecURL, remote.SourceURL)
		return nil
	},
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}
