// Package render writes the pipeline's artifacts: CSV tables, PNG figures
// and Markdown documents. Everything here is pure formatting; rounding
// happens at this boundary only, so changing a layout never changes a metric.
package render

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Output file names. Stable across runs so downstream consumers can link to
// them.
const (
	CleanClaimsFile   = "claims_clean.csv"
	KPISummaryFile    = "kpis_summary.csv"
	KPILongFile       = "kpis.csv"
	MissingnessFile   = "missingness.csv"
	BasicProfileFile  = "basic_profile.csv"
	ConcentrationFile = "cost_concentration.csv"
	AnomaliesFile     = "patient_anomalies.csv"

	HistogramFigure = "claim_amount_distribution.png"
	BoxPlotFigure   = "patient_total_cost_boxplot.png"
	TopDxFigure     = "top_dx.png"
	TrendFigure     = "monthly_trend.png"
	ParetoFigure    = "pareto.png"

	ReportFile     = "REPORT.md"
	MemoFile       = "decision_memo.md"
	DictionaryFile = "data_dictionary.md"
)

// Paths lays out the output tree under a single root directory.
type Paths struct {
	Root string
}

func NewPaths(root string) Paths { return Paths{Root: root} }

func (p Paths) DataDir() string    { return filepath.Join(p.Root, "data") }
func (p Paths) TablesDir() string  { return filepath.Join(p.Root, "tables") }
func (p Paths) FiguresDir() string { return filepath.Join(p.Root, "figures") }
func (p Paths) DocsDir() string    { return filepath.Join(p.Root, "docs") }

func (p Paths) CleanClaims() string { return filepath.Join(p.DataDir(), CleanClaimsFile) }
func (p Paths) Table(name string) string {
	return filepath.Join(p.TablesDir(), name)
}
func (p Paths) Figure(name string) string {
	return filepath.Join(p.FiguresDir(), name)
}
func (p Paths) Report() string     { return filepath.Join(p.Root, ReportFile) }
func (p Paths) Memo() string       { return filepath.Join(p.DocsDir(), MemoFile) }
func (p Paths) Dictionary() string { return filepath.Join(p.DocsDir(), DictionaryFile) }

// EnsureDirs creates the output tree.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.DataDir(), p.TablesDir(), p.FiguresDir(), p.DocsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "render: create %s", dir)
		}
	}
	return nil
}
