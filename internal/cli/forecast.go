package cli

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fincast/internal/dataprocessing"
	"fincast/internal/exporter"
	"fincast/internal/infrastructure"
	"fincast/internal/services"
	"fincast/pkg/contracts/domain"
)

type forecastOptions struct {
	policy string
	out    string
	xlsx   string
	quiet  bool
}

func newForecastCommand(opts *globalOptions) *cobra.Command {
	fo := &forecastOptions{}

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project access and usage rates and write the forecast table",
		Long: `Forecast fits a linear trend to each indicator's history, adds the
scenario-weighted event shocks from the impact matrix and writes one row
per (year, scenario).

The impact matrix file is used when present; otherwise it is built from the
observation table.

Example:
  fincast forecast
  fincast forecast --policy ramp --xlsx forecast.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecast(cmd, opts, fo)
		},
	}

	cmd.Flags().StringVar(&fo.policy, "policy", "", "projection policy: cumulative or ramp (default: configured)")
	cmd.Flags().StringVar(&fo.out, "out", "", "output CSV path (default: configured forecast file)")
	cmd.Flags().StringVar(&fo.xlsx, "xlsx", "", "also write an .xlsx copy to this path")
	cmd.Flags().BoolVarP(&fo.quiet, "quiet", "q", false, "do not print the table")
	return cmd
}

func runForecast(cmd *cobra.Command, opts *globalOptions, fo *forecastOptions) error {
	cfg, paths, logger, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	if fo.policy != "" {
		if _, err := domain.ParsePolicy(fo.policy); err != nil {
			return err
		}
		cfg.Forecast.Policy = fo.policy
	}
	out := fo.out
	if out == "" {
		out = paths.ForecastFile
	}

	metrics, err := infrastructure.NewForecastMetrics(nil)
	if err != nil {
		return err
	}
	svc, err := services.NewForecastService(cfg, paths, dataprocessing.NewLoader(logger), metrics, nil, logger)
	if err != nil {
		return err
	}

	ctx := infrastructure.EnsureTraceID(cmd.Context())
	snap, err := svc.Snapshot(ctx)
	if err != nil {
		return err
	}
	result := snap.Result

	for _, w := range result.Warnings {
		logger.WarnContext(ctx, "Forecast warning",
			slog.String("kind", string(w.Kind)),
			slog.String("indicator", w.Indicator),
			slog.String("message", w.Message))
	}

	exp := exporter.NewForecastExporter(paths, logger)
	if err := exp.WriteForecastTable(out, result.Records); err != nil {
		return err
	}
	if fo.xlsx != "" {
		if err := exp.WriteForecastXLSX(fo.xlsx, result.Records); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "Forecast command complete",
		slog.String("run_id", result.RunID),
		slog.String("policy", string(result.Policy)),
		slog.String("matrix_source", snap.MatrixSource),
		slog.String("output", out),
		slog.Int("rows", len(result.Records)),
		slog.Int("warnings", len(result.Warnings)))

	if !fo.quiet {
		printForecast(cmd.OutOrStdout(), result.Records)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(result.Records), out)
	return nil
}

func printForecast(w io.Writer, records []domain.ForecastRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tSCENARIO\tACCESS\tUSAGE\tLOWER_CI\tUPPER_CI")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Year, r.Scenario, optional(r.AccessRate), optional(r.UsageRate), optional(r.LowerCI), optional(r.UpperCI))
	}
	tw.Flush()
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
