package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SamuelSchlesinger/generalist/internal/config"
	"github.com/SamuelSchlesinger/generalist/internal/session"
	"github.com/SamuelSchlesinger/generalist/internal/tool"
	"github.com/SamuelSchlesinger/generalist/internal/tools"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved conversations",
	}
	cmd.AddCommand(sessionsListCmd(), sessionsShowCmd(), sessionsDeleteCmd())
	return cmd
}

// openStore opens the session store without wiring the rest of the app, so
// session management never needs provider credentials.
func openStore(cmd *cobra.Command) (session.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return session.OpenSQLite(cfg.Sessions.Path)
}

func sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved conversations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			summaries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("no saved sessions")
				return nil
			}
			for _, s := range summaries {
				fmt.Printf("%s  %3d msgs  %s  %s\n",
					s.ID[:8], s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"), s.Title)
			}
			return nil
		},
	}
}

func sessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			state, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					return fmt.Errorf("no session with id %s", args[0])
				}
				return err
			}

			fmt.Printf("session %s  %q  %d messages  %d tokens\n\n",
				state.ID, state.Title, len(state.Messages), state.Usage.Total())
			printHistory(state.Messages)
			return nil
		},
	}
}

func sessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted session %s\n", args[0])
			return nil
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the builtin tools and their schemas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			registry := tool.NewRegistry(tool.RegistryConfig{Handler: tool.DenyAll{}})
			if err := tools.RegisterBuiltins(registry, tools.Config{
				WorkspaceRoot: cfg.Tools.WorkspaceRoot,
			}); err != nil {
				return err
			}

			for _, def := range registry.Definitions() {
				fmt.Printf("%-24s %s\n", def.Name, def.Description)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			model := cfg.Provider.Model
			if model == "" {
				model = "default"
			}
			fmt.Printf("Configuration OK (model %s, permission mode %s)\n",
				model, cfg.Tools.PermissionMode)
			return nil
		},
	})
	return cmd
}
