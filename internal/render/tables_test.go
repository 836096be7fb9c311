package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claims-cli/internal/metrics"
	"github.com/sells-group/claims-cli/internal/model"
	"github.com/sells-group/claims-cli/internal/quality"
)

func f64(v float64) *float64 { return &v }

func day(d int) *time.Time {
	t := time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func sampleKPIs() metrics.KPISummary {
	return metrics.KPISummary{
		ClaimCount:         3,
		ColumnCount:        15,
		TotalBilled:        4500.25,
		AvgClaim:           1500.168,
		MedianClaim:        1200,
		P95Claim:           2850.25,
		MinClaim:           300,
		MaxClaim:           3000,
		UniquePatients:     2,
		UniqueDiagnoses:    2,
		TopDiagnosisCode:   "E11.9",
		TopDiagnosisBilled: 3300,
		TopDiagnosisShare:  73.33,
		MemberMonths:       2,
		PMPMBilled:         2250.125,
		DateMin:            day(3),
		DateMax:            day(28),
	}
}

func sampleAnomaly() metrics.AnomalyReport {
	return metrics.AnomalyReport{
		Percentile: 0.99,
		Threshold:  812.5,
		Flagged: []metrics.PatientAnomaly{
			{PatientID: "P9", ClaimCount: 2, TotalBilled: 2000, AvgClaim: 1000, ZScore: 3.21},
		},
	}
}

func TestKPISummaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), KPISummaryFile)
	require.NoError(t, WriteKPISummary(path, sampleKPIs(), sampleAnomaly()))

	got, anomaly, err := ReadKPISummary(path)
	require.NoError(t, err)

	assert.Equal(t, 3, got.ClaimCount)
	assert.Equal(t, 15, got.ColumnCount)
	assert.InDelta(t, 4500.25, got.TotalBilled, 1e-9)
	assert.InDelta(t, 2250.125, got.PMPMBilled, 1e-9)
	assert.Equal(t, "E11.9", got.TopDiagnosisCode)
	require.NotNil(t, got.DateMin)
	assert.Equal(t, "2025-01-03", got.DateMin.Format("2006-01-02"))
	assert.InDelta(t, 0.99, anomaly.Percentile, 1e-9)
	assert.InDelta(t, 812.5, anomaly.Threshold, 1e-9)
}

func TestKPILongMatchesWide(t *testing.T) {
	dir := t.TempDir()
	k := sampleKPIs()
	a := sampleAnomaly()
	require.NoError(t, WriteKPISummary(filepath.Join(dir, KPISummaryFile), k, a))
	require.NoError(t, WriteKPILong(filepath.Join(dir, KPILongFile), k, a))

	long, err := readCSV(filepath.Join(dir, KPILongFile))
	require.NoError(t, err)
	wide, err := readCSV(filepath.Join(dir, KPISummaryFile))
	require.NoError(t, err)

	require.Equal(t, len(wide[0])+1, len(long)) // header row + one row per metric
	for i, name := range wide[0] {
		assert.Equal(t, name, long[i+1][0])
		assert.Equal(t, wide[1][i], long[i+1][1])
	}
}

func TestWriteCleanClaims(t *testing.T) {
	path := filepath.Join(t.TempDir(), CleanClaimsFile)
	claims := []model.Claim{
		{ClaimID: "C1", PatientID: "P1", DateOfService: day(5), BilledAmount: f64(1234.56), DiagnosisCode: "E11.9"},
		{ClaimID: "C2", PatientID: "P2", DateOfService: day(6), BilledAmount: f64(90)},
	}
	require.NoError(t, WriteCleanClaims(path, claims))

	records, err := readCSV(path)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, cleanHeader, records[0])
	assert.Equal(t, "C1", records[1][0])
	assert.Equal(t, "2025-01-05", records[1][3])
	assert.Equal(t, "1234.56", records[1][4])
	assert.Equal(t, "", records[2][8]) // empty diagnosis stays empty
}

func TestConcentrationRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConcentrationFile)
	rows := []metrics.ConcentrationRow{
		{TopPct: 1, PatientCount: 1, TotalPatients: 100, CostSharePct: 12.345},
		{TopPct: 2.5, PatientCount: 3, TotalPatients: 100, CostSharePct: 19.8},
		{TopPct: 5, PatientCount: 5, TotalPatients: 100, CostSharePct: 31.2},
	}
	require.NoError(t, WriteConcentration(path, rows))

	records, err := readCSV(path)
	require.NoError(t, err)
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "2.5", records[2][0]) // fractional cutoffs keep their fraction

	got, err := ReadConcentration(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[0].TopPct)
	assert.InDelta(t, 12.35, got[0].CostSharePct, 1e-9)
	assert.Equal(t, 2.5, got[1].TopPct)
	assert.Equal(t, 100, got[2].TotalPatients)
}

func TestAnomaliesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	report := sampleAnomaly()
	require.NoError(t, WriteAnomalies(filepath.Join(dir, AnomaliesFile), report))
	require.NoError(t, WriteKPISummary(filepath.Join(dir, KPISummaryFile), sampleKPIs(), report))

	_, got, err := ReadKPISummary(filepath.Join(dir, KPISummaryFile))
	require.NoError(t, err)
	assert.InDelta(t, 0.99, got.Percentile, 1e-9)
	assert.InDelta(t, 812.5, got.Threshold, 1e-9)

	got.Flagged, err = ReadAnomalies(filepath.Join(dir, AnomaliesFile))
	require.NoError(t, err)
	require.Len(t, got.Flagged, 1)
	assert.Equal(t, "P9", got.Flagged[0].PatientID)
	assert.InDelta(t, 1000, got.Flagged[0].AvgClaim, 1e-9)
	assert.InDelta(t, 3.21, got.Flagged[0].ZScore, 1e-4)

	// A memo regenerated from the tables must carry the real threshold.
	memo := filepath.Join(dir, MemoFile)
	require.NoError(t, WriteDecisionMemo(memo, ReportData{KPIs: sampleKPIs(), Anomaly: got}))
	body, err := os.ReadFile(memo)
	require.NoError(t, err)
	assert.Contains(t, string(body), "($812.50)")
	assert.NotContains(t, string(body), "$0.00")
}

func TestAnomaliesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), AnomaliesFile)
	require.NoError(t, WriteAnomalies(path, metrics.AnomalyReport{Percentile: 0.99}))

	got, err := ReadAnomalies(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteMissingnessAndProfile(t *testing.T) {
	dir := t.TempDir()

	cols := []quality.ColumnStat{
		{Name: "Paid Amount", MissingCount: 3, MissingPct: 30},
		{Name: "Claim ID", MissingCount: 0, MissingPct: 0},
	}
	require.NoError(t, WriteMissingness(filepath.Join(dir, MissingnessFile), cols))

	records, err := readCSV(filepath.Join(dir, MissingnessFile))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Paid Amount", "3", "30.00"}, records[1])

	profiles := []quality.AmountProfile{
		{Column: "Billed Amount", Present: 10, Min: 5, Max: 900, Mean: 123.456},
	}
	require.NoError(t, WriteBasicProfile(filepath.Join(dir, BasicProfileFile), profiles))

	records, err = readCSV(filepath.Join(dir, BasicProfileFile))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Billed Amount", "10", "5.00", "900.00", "123.46"}, records[1])
}

func TestEnsureDirs(t *testing.T) {
	p := NewPaths(filepath.Join(t.TempDir(), "outputs"))
	require.NoError(t, p.EnsureDirs())

	for _, dir := range []string{p.DataDir(), p.TablesDir(), p.FiguresDir(), p.DocsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
