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
	dictInput  string
	dictOutput string
)

var dictionaryCmd = &cobra.Command{
	Use:   "dictionary",
	Short: "Regenerate the data dictionary from a cleaned-claims export",
	RunE: func(cmd *cobra.Command, args []string) error {
		input := dictInput
		if input == "" {
			input = render.NewPaths(cfg.Output.Dir).CleanClaims()
		}
		output := dictOutput
		if output == "" {
			output = render.NewPaths(cfg.Output.Dir).Dictionary()
		}

		in, err := render.ReadDictionaryInput(input)
		if err != nil {
			return eris.Wrap(err, "read cleaned claims")
		}
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
		if err := render.WriteDataDictionary(output, in); err != nil {
			return err
		}

		zap.L().Info("data dictionary written",
			zap.String("input", input),
			zap.String("output", output),
			zap.Int("columns", len(in.Header)),
		)
		return nil
	},
}

func init() {
	dictionaryCmd.Flags().StringVar(&dictInput, "input", "", "cleaned-claims CSV (default <output>/data/claims_clean.csv)")
	dictionaryCmd.Flags().StringVar(&dictOutput, "output", "", "dictionary path (default <output>/docs/data_dictionary.md)")
	rootCmd.AddCommand(dictionaryCmd)
}
