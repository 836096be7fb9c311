package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/claims-cli/internal/render"
)

var (
	docsTables string
	docsOutput string
)

// docsCmd regenerates the report and decision memo from tables written by a
// previous run, without recomputing anything.
var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Regenerate report and decision memo from existing tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		tablesDir := docsTables
		if tablesDir == "" {
			tablesDir = filepath.Join(cfg.Output.Dir, "tables")
		}
		outDir := docsOutput
		if outDir == "" {
			outDir = cfg.Output.Dir
		}

		kpis, anomaly, err := render.ReadKPISummary(filepath.Join(tablesDir, render.KPISummaryFile))
		if err != nil {
			return eris.Wrap(err, "read kpis")
		}
		rows, err := render.ReadConcentration(filepath.Join(tablesDir, render.ConcentrationFile))
		if err != nil {
			return eris.Wrap(err, "read cost concentration")
		}
		anomaly.Flagged, err = render.ReadAnomalies(filepath.Join(tablesDir, render.AnomaliesFile))
		if err != nil {
			return eris.Wrap(err, "read anomalies")
		}

		paths := render.NewPaths(outDir)
		if err := os.MkdirAll(paths.DocsDir(), 0o755); err != nil {
			return eris.Wrap(err, "create docs dir")
		}

		data := render.ReportData{
			Input:   cfg.Input.Path,
			KPIs:    kpis,
			Rows:    rows,
			Anomaly: anomaly,
			Figures: existingFigures(paths),
		}
		if err := render.WriteReport(paths.Report(), data); err != nil {
			return err
		}
		if err := render.WriteDecisionMemo(paths.Memo(), data); err != nil {
			return err
		}

		zap.L().Info("docs regenerated",
			zap.String("report", paths.Report()),
			zap.String("memo", paths.Memo()),
		)
		return nil
	},
}

// existingFigures lists the known figure files already on disk so the report
// links only what exists.
func existingFigures(paths render.Paths) []string {
	var out []string
	for _, name := range []string{
		render.HistogramFigure, render.BoxPlotFigure, render.TopDxFigure,
		render.TrendFigure, render.ParetoFigure,
	} {
		if _, err := os.Stat(paths.Figure(name)); err == nil {
			out = append(out, name)
		}
	}
	return out
}

func init() {
	docsCmd.Flags().StringVar(&docsTables, "tables", "", "directory holding the output tables (default <output>/tables)")
	docsCmd.Flags().StringVar(&docsOutput, "output", "", "output directory (default from config)")
	rootCmd.AddCommand(docsCmd)
}
