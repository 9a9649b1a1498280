package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/varscope/varscope/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the variant review HTTP server",
		Example: `  varscope serve
  varscope serve --port 9090
  VARSCOPE_DATA_DIR=/data/cohort varscope serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	cmd.Flags().Int("port", 0, "Listen port (overrides config)")
	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	return cmd
}

func runServe() error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer st.Close()

	pm, err := openPanels(logger)
	if err != nil {
		return err
	}
	defer pm.Close()

	resolver := openResolver(logger)

	srv := server.New(st, pm, resolver)
	srv.SetLogger(logger)
	srv.SetDisplayCap(viper.GetInt("limits.display_cap"))
	if viper.GetBool("server.scheduler") {
		srv.StartScheduler()
	}
	defer srv.Close()

	return srv.Start(fmt.Sprintf(":%d", viper.GetInt("server.port")))
}
