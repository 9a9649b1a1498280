// Package main provides the varscope command-line tool.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/varscope/varscope/internal/genemap"
	"github.com/varscope/varscope/internal/panels"
	"github.com/varscope/varscope/internal/store"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:     "varscope",
		Short:   "Genomic variant review over columnar Parquet datasets",
		Version: fmt.Sprintf("%s (%s) built %s", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	cmd.PersistentFlags().String("data-dir", "", "Variant data directory (overrides config)")
	viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("data.dir", cmd.PersistentFlags().Lookup("data-dir"))

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSamplesCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newPanelsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig(cmd *cobra.Command) error {
	viper.SetConfigName(".varscope")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("VARSCOPE")
	viper.AutomaticEnv()

	viper.SetDefault("data.dir", "data")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.scheduler", true)
	viper.SetDefault("limits.load_cap", store.DefaultLoadCap)
	viper.SetDefault("limits.display_cap", store.DefaultDisplayCap)
	viper.SetDefault("panels.staleness_days", 7)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if viper.GetBool("verbose") {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

// openStore opens the variant store with the configured caps and logger.
func openStore(logger *zap.Logger) (*store.Store, error) {
	dir := viper.GetString("data.dir")
	s, err := store.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("opening variant store at %s: %w", dir, err)
	}
	s.SetLogger(logger)
	s.SetLoadCap(viper.GetInt("limits.load_cap"))
	s.SetDisplayCap(viper.GetInt("limits.display_cap"))
	return s, nil
}

// openResolver builds the gene id to symbol resolver. The mapping file
// defaults to gene_id_mapping.tsv inside the data directory.
func openResolver(logger *zap.Logger) *genemap.Resolver {
	path := viper.GetString("data.gene_map")
	if path == "" {
		path = filepath.Join(viper.GetString("data.dir"), "gene_id_mapping.tsv")
	}
	r := genemap.NewResolver(path)
	r.SetLogger(logger)
	return r
}

func openPanels(logger *zap.Logger) (*panels.Manager, error) {
	m, err := panels.NewManager(viper.GetString("data.dir"))
	if err != nil {
		return nil, fmt.Errorf("opening panel manager: %w", err)
	}
	m.SetLogger(logger)
	if days := viper.GetInt("panels.staleness_days"); days > 0 {
		m.SetStaleness(time.Duration(days) * 24 * time.Hour)
	}
	uk := viper.GetString("panels.registry_uk")
	au := viper.GetString("panels.registry_au")
	if uk != "" || au != "" {
		var regs []panels.Registry
		if uk != "" {
			regs = append(regs, panels.Registry{Name: panels.SourceRegistryUK, BaseURL: uk})
		}
		if au != "" {
			regs = append(regs, panels.Registry{Name: panels.SourceRegistryAU, BaseURL: au})
		}
		m.SetRegistries(regs)
	}
	return m, nil
}
