package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/claims-cli/internal/pipeline"
)

var (
	runInput  string
	runOutput string
	runSheet  string
	runRules  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full claims pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		applyRunFlags()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p := pipeline.New(*cfg, st)
		res, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("run_id", res.RunID),
			zap.String("report", res.Paths.Report()),
			zap.Int("figures", len(res.Figures)),
		)

		out := map[string]any{
			"run_id":     res.RunID,
			"raw_rows":   res.RawRows,
			"clean_rows": res.CleanRows,
			"kpis":       res.KPIs,
			"anomalies":  len(res.Anomaly.Flagged),
			"report":     res.Paths.Report(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func applyRunFlags() {
	if runInput != "" {
		cfg.Input.Path = runInput
	}
	if runOutput != "" {
		cfg.Output.Dir = runOutput
	}
	if runSheet != "" {
		cfg.Input.Sheet = runSheet
	}
	if runRules != "" {
		cfg.Quality.RulesPath = runRules
	}
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "input CSV or XLSX path (default from config)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "output directory (default from config)")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	runCmd.Flags().StringVar(&runRules, "rules", "", "quality rules YAML path")
	rootCmd.AddCommand(runCmd)
}
