package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claims-cli/internal/model"
)

func TestPatientTotals_SortedAndStable(t *testing.T) {
	claims := []model.Claim{
		claim("C1", "M2", "A", "2024-03-01", 100),
		claim("C2", "M1", "A", "2024-03-01", 100),
		claim("C3", "M3", "A", "2024-03-01", 500),
		claim("C4", "M2", "A", "2024-03-02", 50),
	}

	totals := PatientTotals(claims)
	require.Len(t, totals, 3)

	assert.Equal(t, "M3", totals[0].PatientID)
	// M2 (150) beats M1 (100).
	assert.Equal(t, "M2", totals[1].PatientID)
	assert.Equal(t, 2, totals[1].ClaimCount)
	assert.Equal(t, "M1", totals[2].PatientID)
}

func TestPatientTotals_TieBrokenByPatientID(t *testing.T) {
	claims := []model.Claim{
		claim("C1", "M9", "A", "2024-03-01", 100),
		claim("C2", "M1", "A", "2024-03-01", 100),
		claim("C3", "M5", "A", "2024-03-01", 100),
	}

	totals := PatientTotals(claims)
	require.Len(t, totals, 3)
	assert.Equal(t, "M1", totals[0].PatientID)
	assert.Equal(t, "M5", totals[1].PatientID)
	assert.Equal(t, "M9", totals[2].PatientID)
}

func TestCostConcentration_SmallTable(t *testing.T) {
	claims := []model.Claim{
		claim("C1", "M1", "A", "2024-03-01", 700),
		claim("C2", "M2", "A", "2024-03-01", 200),
		claim("C3", "M3", "A", "2024-03-01", 100),
	}

	rows := CostConcentration(PatientTotals(claims), []float64{1, 5, 10})
	require.Len(t, rows, 3)

	// ceil(3*0.01)=1 patient at every cutoff here; share = 700/1000.
	for _, row := range rows {
		assert.Equal(t, 1, row.PatientCount)
		assert.Equal(t, 3, row.TotalPatients)
		assert.InDelta(t, 70.0, row.CostSharePct, 1e-9)
	}
}

func TestCostConcentration_SumMatchesKPITotal(t *testing.T) {
	claims := uniformClaims(1000, 200, 42)

	totals := PatientTotals(claims)
	k := ComputeKPIs(claims, 15)

	sum := 0.0
	for _, pt := range totals {
		sum += pt.TotalBilled
	}
	assert.InDelta(t, k.TotalBilled, sum, 1e-6)
}

func TestCostConcentration_UniformTopShares(t *testing.T) {
	claims := uniformClaims(1000, 200, 42)

	rows := CostConcentration(PatientTotals(claims), []float64{1, 5, 10})
	require.Len(t, rows, 3)

	// Uniform amounts spread evenly over patients: the top 10% carries only a
	// modestly outsized share, around 16%.
	top10 := rows[2]
	assert.Equal(t, 20, top10.PatientCount)
	assert.InDelta(t, 16.0, top10.CostSharePct, 4.0)

	// Shares grow with the cutoff.
	assert.Less(t, rows[0].CostSharePct, rows[1].CostSharePct)
	assert.Less(t, rows[1].CostSharePct, rows[2].CostSharePct)
}

func TestCostConcentration_Empty(t *testing.T) {
	assert.Nil(t, CostConcentration(nil, []float64{1, 5, 10}))
}

func TestConcentrationCurve_Monotone(t *testing.T) {
	claims := uniformClaims(500, 100, 11)

	points := ConcentrationCurve(PatientTotals(claims))
	require.NotEmpty(t, points)

	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i].CostPct, points[i-1].CostPct,
			"cumulative cost share must be non-decreasing")
		assert.Greater(t, points[i].PatientPct, points[i-1].PatientPct)
	}
	last := points[len(points)-1]
	assert.InDelta(t, 100.0, last.PatientPct, 1e-9)
	assert.InDelta(t, 100.0, last.CostPct, 1e-9)
}
