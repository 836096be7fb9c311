package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/claims-cli/internal/pipeline"
	"github.com/sells-group/claims-cli/internal/quality"
)

var (
	checkInput string
	checkSheet string
	checkRules string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run data-quality checks only",
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkInput != "" {
			cfg.Input.Path = checkInput
		}
		if checkSheet != "" {
			cfg.Input.Sheet = checkSheet
		}
		if checkRules != "" {
			cfg.Quality.RulesPath = checkRules
		}

		p := pipeline.New(*cfg, nil)
		report, err := p.Check(cmd.Context())
		if err != nil {
			return err
		}

		printQualityReport(os.Stdout, cfg.Input.Path, report)

		if report.Fatal() {
			return eris.Errorf("quality check failed: %s", report.Failures[0])
		}
		return nil
	},
}

func printQualityReport(out io.Writer, input string, r *quality.Report) {
	fmt.Fprintf(out, "Quality report for %s\n\n", input)
	fmt.Fprintf(out, "Rows: %d  Columns: %d\n", r.RowCount, r.ColumnCount)
	if r.DateMin != nil && r.DateMax != nil {
		fmt.Fprintf(out, "Date range: %s to %s\n", r.DateMin.Format("2006-01-02"), r.DateMax.Format("2006-01-02"))
	}
	fmt.Fprintf(out, "Grain: %s\n\n", r.Grain)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tCOUNT")
	fmt.Fprintf(w, "duplicate claim ids\t%d\n", r.DuplicateClaimIDs)
	fmt.Fprintf(w, "missing/non-positive billed\t%d\n", r.InvalidBilled)
	fmt.Fprintf(w, "unparseable dates\t%d\n", r.UnparseableDates)
	fmt.Fprintf(w, "negative allowed amounts\t%d\n", r.NegativeAllowed)
	fmt.Fprintf(w, "negative paid amounts\t%d\n", r.NegativePaid)
	fmt.Fprintf(w, "future dates\t%d\n", r.FutureDates)
	w.Flush()

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tMISSING\tPCT")
	for _, c := range r.Columns {
		fmt.Fprintf(w, "%s\t%d\t%.2f%%\n", c.Name, c.MissingCount, c.MissingPct)
	}
	w.Flush()

	if len(r.Failures) > 0 {
		fmt.Fprintln(out, "\nFatal findings:")
		for _, f := range r.Failures {
			fmt.Fprintf(out, "- %s\n", f)
		}
	}
}

func init() {
	checkCmd.Flags().StringVar(&checkInput, "input", "", "input CSV or XLSX path (default from config)")
	checkCmd.Flags().StringVar(&checkSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	checkCmd.Flags().StringVar(&checkRules, "rules", "", "quality rules YAML path")
	rootCmd.AddCommand(checkCmd)
}
