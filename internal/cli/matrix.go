package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"fincast/internal/dataprocessing"
	"fincast/internal/exporter"
)

func newMatrixCommand(opts *globalOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Build the event impact matrix from the observation table",
		Long: `Matrix joins impact_link rows to their parent events and writes an
events x indicators CSV of summed impact magnitudes.

Example:
  fincast matrix --data data/raw/ethiopia_fi_unified_data.xlsx
  fincast matrix --out /tmp/impact_matrix.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, paths, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			if out == "" {
				out = paths.MatrixFile
			}

			loaded, err := dataprocessing.NewLoader(logger).Load(paths.DataFile, cfg.Paths.DataSheet)
			if err != nil {
				return err
			}

			m, err := dataprocessing.BuildImpactMatrix(loaded.Records)
			if err != nil {
				return err
			}

			if err := exporter.NewForecastExporter(paths, logger).WriteMatrixCSV(out, m); err != nil {
				return err
			}

			logger.Info("Matrix command complete",
				slog.String("output", out),
				slog.Int("skipped_rows", loaded.Skipped))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d events x %d indicators to %s\n",
				len(m.Events), len(m.Indicators), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output CSV path (default: configured matrix file)")
	return cmd
}
