package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fincast/internal/impact"
)

type lagOptions struct {
	shape  string
	start  string
	total  float64
	months int
	years  []int
	asJSON bool
}

func newLagCommand() *cobra.Command {
	lo := &lagOptions{}

	cmd := &cobra.Command{
		Use:   "lag",
		Short: "Print how an event's lift is realized month by month",
		Long: `Lag distributes an event's total lift over its rollout using a linear,
sigmoid or decay shape and prints the monthly curve. With --years it also
prints the share realized by the end of each year, which is what the ramp
policy consumes.

Example:
  fincast lag --shape sigmoid --total 5 --months 24 --start 2025-01-01
  fincast lag --shape decay --years 2025,2026,2027`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shape, err := impact.ParseShape(lo.shape)
			if err != nil {
				return err
			}
			start, err := time.Parse("2006-01-02", lo.start)
			if err != nil {
				return fmt.Errorf("invalid --start %q: %w", lo.start, err)
			}

			curve, err := impact.Distribute(start, lo.total, lo.months, shape)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if lo.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(curve)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MONTH\tINCREMENTAL\tCUMULATIVE")
			for _, p := range curve.Points {
				fmt.Fprintf(tw, "%s\t%.4f\t%.4f\n", p.Date.Format("2006-01"), p.Incremental, p.Cumulative)
			}
			tw.Flush()

			if len(lo.years) > 0 {
				schedule := impact.RampSchedule(curve, lo.years)
				fmt.Fprintln(out)
				tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "YEAR\tREALIZED")
				for _, year := range lo.years {
					fmt.Fprintf(tw, "%d\t%.4f\n", year, schedule[year])
				}
				tw.Flush()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&lo.shape, "shape", string(impact.ShapeLinear), "effect shape: linear, sigmoid or decay")
	cmd.Flags().StringVar(&lo.start, "start", "2025-01-01", "month of the first increment (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&lo.total, "total", 1.0, "total lift in percentage points")
	cmd.Flags().IntVar(&lo.months, "months", 12, "rollout length in months")
	cmd.Flags().IntSliceVar(&lo.years, "years", nil, "also print the realized share at each year end")
	cmd.Flags().BoolVar(&lo.asJSON, "json", false, "print the curve as JSON")
	return cmd
}
