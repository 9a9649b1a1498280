package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPanelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panels",
		Short: "Manage gene panels",
		Example: `  varscope panels list
  varscope panels refresh --force`,
	}
	cmd.AddCommand(newPanelsListCmd())
	cmd.AddCommand(newPanelsRefreshCmd())
	return cmd
}

func newPanelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached gene panels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			pm, err := openPanels(logger)
			if err != nil {
				return err
			}
			defer pm.Close()

			options := pm.ListPanels()
			if len(options) == 0 {
				fmt.Println("No panels cached. Run: varscope panels refresh")
				return nil
			}
			for _, p := range options {
				fmt.Printf("%-30s %s\n", p.ID, p.Label)
			}
			if pm.Stale() {
				fmt.Println("\nPanel cache is stale. Run: varscope panels refresh")
			}
			return nil
		},
	}
}

func newPanelsRefreshCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh panels from local files and external registries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			pm, err := openPanels(logger)
			if err != nil {
				return err
			}
			defer pm.Close()

			if err := pm.Refresh(force); err != nil {
				return fmt.Errorf("refreshing panels: %w", err)
			}
			fmt.Printf("Panel cache holds %d panels\n", pm.PanelCount())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Refresh even when the cache is fresh")
	return cmd
}
