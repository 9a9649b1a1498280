package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/varscope/varscope/internal/store"
)

func newSamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "List sample identifiers in the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			st, err := openStore(logger)
			if err != nil {
				return err
			}
			defer st.Close()

			samples := st.ListSamples()
			if len(samples) == 0 {
				fmt.Println("No samples found.")
				return nil
			}
			for _, s := range samples {
				fmt.Println(s)
			}
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dataset statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			st, err := openStore(logger)
			if err != nil {
				return err
			}
			defer st.Close()

			info := st.Info()
			fmt.Printf("Status:             %s\n", info.Status)
			fmt.Printf("Variants:           %d\n", info.TotalVariants)
			fmt.Printf("Samples:            %d\n", info.TotalSamples)
			fmt.Printf("Reviewed:           %d\n", info.ReviewedVariants)
			fmt.Printf("Pending:            %d\n", info.PendingVariants)
			fmt.Printf("ClinVar annotated:  %d\n", info.ClinvarAnnotated)
			fmt.Printf("Chromosomes:        %s\n", strings.Join(info.Chromosomes, ", "))
			fmt.Printf("File size:          %.1f MB\n", info.FileSizeMB)
			fmt.Printf("Last modified:      %s\n", info.LastModified)
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		samplesFlag string
		chromFlag   string
		outputFile  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export variants as CSV",
		Example: `  varscope export --samples S1,S2 -o variants.csv
  varscope export --samples S1 --chrom X`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if samplesFlag == "" {
				return fmt.Errorf("at least one sample is required (--samples)")
			}
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			st, err := openStore(logger)
			if err != nil {
				return err
			}
			defer st.Close()

			samples := strings.Split(samplesFlag, ",")
			var chroms []string
			if chromFlag != "" && chromFlag != "all" {
				chroms = []string{chromFlag}
			}
			rows := st.LoadVariants(samples, chroms, 0)

			out := os.Stdout
			if outputFile != "" {
				out, err = os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer out.Close()
			}
			if err := store.ExportCSV(out, rows); err != nil {
				return fmt.Errorf("writing csv: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Exported %d variants\n", len(rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&samplesFlag, "samples", "", "Comma-separated sample identifiers")
	cmd.Flags().StringVar(&chromFlag, "chrom", "", "Restrict to one chromosome")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}
