// Package main is the entry point for the generalist CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SamuelSchlesinger/generalist/internal/config"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "generalist",
		Short:         "A conversational agent with a permissioned tool belt",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(versionCmd(), chatCmd(), sessionsCmd(), toolsCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("generalist %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// loadConfig resolves and loads the configuration. A missing file is not an
// error unless the user named one explicitly; defaults carry a usable setup.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.Load(path)
	}
	if resolved, ok := findConfigPath(); ok {
		return config.Load(resolved)
	}
	cfg := &config.Config{}
	cfg.Defaults()
	return cfg, nil
}

// findConfigPath searches standard locations:
// $XDG_CONFIG_HOME/generalist/generalist.yaml → ./generalist.yaml
func findConfigPath() (string, bool) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "generalist", "generalist.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "generalist", "generalist.yaml"))
	}

	candidates = append(candidates, "generalist.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
