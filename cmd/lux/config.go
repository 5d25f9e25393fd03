package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lux-pm/lux/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Default()
		if err != nil {
			return err
		}
		fmt.Printf("home:           %s\n", cfg.HomeDir)
		fmt.Printf("install root:   %s\n", cfg.InstallRoot)
		fmt.Printf("registry cache: %s\n", cfg.RegistryCacheDir)
		fmt.Printf("registry url:   %s\n", cfg.RegistryURL)
		fmt.Printf("api timeout:    %s\n", cfg.APITimeout)
		return nil
	},
}
