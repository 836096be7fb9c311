// Package pipeline sequences the analysis stages: load, quality check,
// clean, metrics, render. Each stage's output is persisted before the next
// stage starts, and a failure halts the run with the failing stage named.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/claims-cli/internal/config"
	"github.com/sells-group/claims-cli/internal/loader"
	"github.com/sells-group/claims-cli/internal/metrics"
	"github.com/sells-group/claims-cli/internal/model"
	"github.com/sells-group/claims-cli/internal/quality"
	"github.com/sells-group/claims-cli/internal/render"
	"github.com/sells-group/claims-cli/internal/store"
)

// Stage names as recorded in the run ledger.
const (
	StageLoad    = "load"
	StageQuality = "quality"
	StageClean   = "clean"
	StageMetrics = "metrics"
	StageTables  = "tables"
	StageFigures = "figures"
	StageDocs    = "docs"
)

// Result is what a completed run produced.
type Result struct {
	RunID   string
	Input   string
	Paths   render.Paths
	Report  *quality.Report
	KPIs    metrics.KPISummary
	Anomaly metrics.AnomalyReport
	Figures []string

	RawRows   int
	CleanRows int
}

// Pipeline runs the end-to-end analysis with its outcome recorded in the run
// ledger.
type Pipeline struct {
	cfg   config.Config
	store store.Store
	now   func() time.Time
}

func New(cfg config.Config, st store.Store) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, now: time.Now}
}

// Run executes the full pipeline on the configured input.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	run, err := p.store.CreateRun(ctx, p.cfg.Input.Path)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("input", p.cfg.Input.Path))
	log.Info("pipeline started")

	res, err := p.execute(ctx, run.ID)
	if err != nil {
		if ferr := p.store.FailRun(ctx, run.ID, err); ferr != nil {
			log.Warn("failed to record run failure", zap.Error(ferr))
		}
		log.Error("pipeline failed", zap.Error(err))
		return nil, err
	}

	summary := &store.RunSummary{
		RawRows:      res.RawRows,
		CleanRows:    res.CleanRows,
		DroppedRows:  res.RawRows - res.CleanRows,
		TotalBilled:  res.KPIs.TotalBilled,
		AnomalyCount: len(res.Anomaly.Flagged),
		OutputDir:    p.cfg.Output.Dir,
	}
	if err := p.store.CompleteRun(ctx, run.ID, summary); err != nil {
		return nil, err
	}

	res.RunID = run.ID
	log.Info("pipeline complete",
		zap.Int("raw_rows", res.RawRows),
		zap.Int("clean_rows", res.CleanRows),
		zap.Int("anomalies", summary.AnomalyCount))
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, runID string) (*Result, error) {
	res := &Result{
		Input: p.cfg.Input.Path,
		Paths: render.NewPaths(p.cfg.Output.Dir),
	}

	// load
	table, err := loader.Load(p.cfg.Input.Path, loader.Options{Sheet: p.cfg.Input.Sheet})
	if err != nil {
		return nil, p.failStage(ctx, runID, StageLoad, err)
	}
	res.RawRows = table.RowCount()
	p.recordStage(ctx, runID, StageLoad, fmt.Sprintf("%d rows, %d columns", table.RowCount(), table.ColumnCount()))

	// quality
	rules, err := p.loadRules()
	if err != nil {
		return nil, p.failStage(ctx, runID, StageQuality, err)
	}
	clean, report := quality.Check(table, rules, p.now())
	res.Report = report
	if report.Fatal() {
		return nil, p.failStage(ctx, runID, StageQuality, eris.Errorf("quality: %s", report.Failures[0]))
	}
	if len(clean) == 0 {
		return nil, p.failStage(ctx, runID, StageQuality, eris.New("quality: no rows survived cleaning"))
	}
	res.CleanRows = len(clean)
	p.recordStage(ctx, runID, StageQuality,
		fmt.Sprintf("%d clean rows, %d duplicates, %d invalid billed, %d bad dates",
			len(clean), report.DuplicateClaimIDs, report.InvalidBilled, report.UnparseableDates))

	// clean export
	if err := res.Paths.EnsureDirs(); err != nil {
		return nil, p.failStage(ctx, runID, StageClean, err)
	}
	if err := render.WriteCleanClaims(res.Paths.CleanClaims(), clean); err != nil {
		return nil, p.failStage(ctx, runID, StageClean, err)
	}
	p.recordStage(ctx, runID, StageClean, res.Paths.CleanClaims())

	// metrics
	res.KPIs = metrics.ComputeKPIs(clean, table.ColumnCount())
	totals := metrics.PatientTotals(clean)
	concentration := metrics.CostConcentration(totals, p.cfg.Metrics.ConcentrationCutoffs)
	curve := metrics.ConcentrationCurve(totals)
	res.Anomaly = metrics.DetectAnomalies(clean, p.cfg.Metrics.AnomalyPercentile)
	topDx := metrics.TopDiagnoses(clean, p.cfg.Metrics.TopDiagnoses)
	monthly := metrics.MonthlyTotals(clean, p.cfg.Metrics.RollingMonths)
	p.recordStage(ctx, runID, StageMetrics,
		fmt.Sprintf("total billed %.2f, %d anomalies", res.KPIs.TotalBilled, len(res.Anomaly.Flagged)))

	// tables
	if err := p.writeTables(res, concentration); err != nil {
		return nil, p.failStage(ctx, runID, StageTables, err)
	}
	p.recordStage(ctx, runID, StageTables, res.Paths.TablesDir())

	// figures
	figures, err := render.RenderFigures(ctx, res.Paths, render.FigureInputs{
		Billed:        billedValues(clean),
		PatientTotals: totals,
		TopDiagnoses:  topDx,
		Monthly:       monthly,
		Curve:         curve,
	})
	if err != nil {
		return nil, p.failStage(ctx, runID, StageFigures, err)
	}
	res.Figures = figures
	p.recordStage(ctx, runID, StageFigures, fmt.Sprintf("%d figures", len(figures)))

	// docs
	if err := p.writeDocs(res, concentration); err != nil {
		return nil, p.failStage(ctx, runID, StageDocs, err)
	}
	p.recordStage(ctx, runID, StageDocs, res.Paths.Report())

	return res, nil
}

func (p *Pipeline) writeTables(res *Result, concentration []metrics.ConcentrationRow) error {
	paths := res.Paths
	if err := render.WriteKPISummary(paths.Table(render.KPISummaryFile), res.KPIs, res.Anomaly); err != nil {
		return err
	}
	if err := render.WriteKPILong(paths.Table(render.KPILongFile), res.KPIs, res.Anomaly); err != nil {
		return err
	}
	if err := render.WriteMissingness(paths.Table(render.MissingnessFile), res.Report.Columns); err != nil {
		return err
	}
	if err := render.WriteBasicProfile(paths.Table(render.BasicProfileFile), res.Report.Amounts); err != nil {
		return err
	}
	if err := render.WriteConcentration(paths.Table(render.ConcentrationFile), concentration); err != nil {
		return err
	}
	return render.WriteAnomalies(paths.Table(render.AnomaliesFile), res.Anomaly)
}

func (p *Pipeline) writeDocs(res *Result, concentration []metrics.ConcentrationRow) error {
	data := render.ReportData{
		Input:   res.Input,
		Quality: res.Report,
		KPIs:    res.KPIs,
		Rows:    concentration,
		Anomaly: res.Anomaly,
		Figures: res.Figures,
	}
	if err := render.WriteReport(res.Paths.Report(), data); err != nil {
		return err
	}
	if err := render.WriteDecisionMemo(res.Paths.Memo(), data); err != nil {
		return err
	}
	in, err := render.ReadDictionaryInput(res.Paths.CleanClaims())
	if err != nil {
		return err
	}
	return render.WriteDataDictionary(res.Paths.Dictionary(), in)
}

// Check runs load and quality only, without touching the output tree or the
// run ledger.
func (p *Pipeline) Check(ctx context.Context) (*quality.Report, error) {
	table, err := loader.Load(p.cfg.Input.Path, loader.Options{Sheet: p.cfg.Input.Sheet})
	if err != nil {
		return nil, err
	}
	rules, err := p.loadRules()
	if err != nil {
		return nil, err
	}
	_, report := quality.Check(table, rules, p.now())
	return report, nil
}

func (p *Pipeline) loadRules() (quality.Rules, error) {
	if p.cfg.Quality.RulesPath == "" {
		rules := quality.DefaultRules()
		rules.MaxFutureDays = p.cfg.Quality.MaxFutureDays
		return rules, nil
	}
	return quality.LoadRules(p.cfg.Quality.RulesPath)
}

func (p *Pipeline) recordStage(ctx context.Context, runID, name, detail string) {
	if err := p.store.RecordStage(ctx, runID, name, "complete", detail); err != nil {
		zap.L().Warn("failed to record stage", zap.String("stage", name), zap.Error(err))
	}
}

func (p *Pipeline) failStage(ctx context.Context, runID, name string, err error) error {
	if rerr := p.store.RecordStage(ctx, runID, name, "failed", err.Error()); rerr != nil {
		zap.L().Warn("failed to record stage", zap.String("stage", name), zap.Error(rerr))
	}
	return eris.Wrapf(err, "pipeline: stage %s", name)
}

func billedValues(claims []model.Claim) []float64 {
	out := make([]float64, 0, len(claims))
	for _, c := range claims {
		if c.BilledAmount != nil {
			out = append(out, *c.BilledAmount)
		}
	}
	return out
}
