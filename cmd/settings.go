package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/greeting-bff/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Print the runtime settings as resolved from the parameter store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := newStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			accessor := settings.New(store,
				settings.WithNamespace(cfg.Service.Name),
				settings.WithDiagnostics(os.Stderr))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(accessor.Snapshot(cmd.Context()))
		},
	}
}
