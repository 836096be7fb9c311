package quality

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claims-cli/internal/model"
)

func date(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &d
}

func amount(v float64) *float64 { return &v }

func testTable(claims []model.Claim) *model.Table {
	header := []string{"Claim ID", "Patient ID", "Date of Service", "Billed Amount", "Allowed Amount", "Paid Amount", "Diagnosis Code"}
	records := make([][]string, len(claims))
	for i, c := range claims {
		row := make([]string, len(header))
		row[0] = c.ClaimID
		row[1] = c.PatientID
		if c.DateOfService != nil {
			row[2] = c.DateOfService.Format("2006-01-02")
		}
		if c.BilledAmount != nil {
			row[3] = "x"
		}
		if c.AllowedAmount != nil {
			row[4] = "x"
		}
		if c.PaidAmount != nil {
			row[5] = "x"
		}
		row[6] = c.DiagnosisCode
		records[i] = row
	}
	return &model.Table{Header: header, Records: records, Claims: claims}
}

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestCheck_CleanTableInvariants(t *testing.T) {
	claims := []model.Claim{
		{ClaimID: "C1", PatientID: "M1", DateOfService: date("2024-03-01"), BilledAmount: amount(100)},
		{ClaimID: "C2", PatientID: "M2", DateOfService: date("2024-03-02"), BilledAmount: amount(0)},   // dropped: zero billed
		{ClaimID: "C3", PatientID: "M3", DateOfService: nil, BilledAmount: amount(50)},                 // dropped: bad date
		{ClaimID: "C4", PatientID: "M4", DateOfService: date("2024-03-04"), BilledAmount: nil},         // dropped: missing billed
		{ClaimID: "C1", PatientID: "M1", DateOfService: date("2024-03-05"), BilledAmount: amount(200)}, // dropped: dup claim id
		{ClaimID: "C5", PatientID: "M5", DateOfService: date("2024-03-06"), BilledAmount: amount(75)},
	}

	clean, report := Check(testTable(claims), DefaultRules(), now)

	require.Len(t, clean, 2)
	seen := make(map[string]bool)
	for _, c := range clean {
		require.NotNil(t, c.BilledAmount)
		assert.Greater(t, *c.BilledAmount, 0.0)
		require.NotNil(t, c.DateOfService)
		assert.False(t, seen[c.ClaimID], "claim id %s duplicated in clean table", c.ClaimID)
		seen[c.ClaimID] = true
	}

	assert.Equal(t, 2, report.InvalidBilled)
	assert.Equal(t, 1, report.UnparseableDates)
	assert.Equal(t, 1, report.DuplicateClaimIDs)
	assert.False(t, report.Fatal())
}

func TestCheck_ZeroBilledCountedNotIgnored(t *testing.T) {
	claims := []model.Claim{
		{ClaimID: "C1", PatientID: "M1", DateOfService: date("2024-03-01"), BilledAmount: amount(100)},
		{ClaimID: "C2", PatientID: "M2", DateOfService: date("2024-03-01"), BilledAmount: amount(0)},
	}

	clean, report := Check(testTable(claims), DefaultRules(), now)

	assert.Len(t, clean, 1)
	assert.Equal(t, 1, report.InvalidBilled, "zero billed amount must be counted, not silently ignored")
}

func TestCheck_Missingness(t *testing.T) {
	claims := []model.Claim{
		{ClaimID: "C1", PatientID: "M1", DateOfService: date("2024-03-01"), BilledAmount: amount(100)},
		{ClaimID: "C2", PatientID: "", DateOfService: date("2024-03-02"), BilledAmount: nil},
	}

	_, report := Check(testTable(claims), DefaultRules(), now)

	byName := make(map[string]ColumnStat)
	for _, cs := range report.Columns {
		byName[cs.Name] = cs
	}
	assert.Equal(t, 1, byName["Patient ID"].MissingCount)
	assert.InDelta(t, 50.0, byName["Patient ID"].MissingPct, 0.001)
	assert.Equal(t, 1, byName["Billed Amount"].MissingCount)
	assert.Equal(t, 0, byName["Claim ID"].MissingCount)
	// Sorted by missing count descending.
	assert.GreaterOrEqual(t, report.Columns[0].MissingCount, report.Columns[len(report.Columns)-1].MissingCount)
}

func TestCheck_NegativeAmountsCountedButKept(t *testing.T) {
	claims := []model.Claim{
		{ClaimID: "C1", PatientID: "M1", DateOfService: date("2024-03-01"), BilledAmount: amount(100), AllowedAmount: amount(-5), PaidAmount: amount(-1)},
	}

	clean, report := Check(testTable(claims), DefaultRules(), now)

	assert.Len(t, clean, 1)
	assert.Equal(t, 1, report.NegativeAllowed)
	assert.Equal(t, 1, report.NegativePaid)
}

func TestCheck_EmptyTableIsFatal(t *testing.T) {
	_, report := Check(testTable(nil), DefaultRules(), now)
	assert.True(t, report.Fatal())
}

func TestCheck_MissingRequiredColumnIsFatal(t *testing.T) {
	table := &model.Table{
		Header:  []string{"Claim ID"},
		Records: [][]string{{"C1"}},
		Claims:  []model.Claim{{ClaimID: "C1"}},
	}
	_, report := Check(table, DefaultRules(), now)
	assert.True(t, report.Fatal())
	assert.Contains(t, report.Failures[0], "Billed Amount")
}

func TestCheck_FutureDateIsFatal(t *testing.T) {
	claims := []model.Claim{
		{ClaimID: "C1", PatientID: "M1", DateOfService: date("2030-01-01"), BilledAmount: amount(100)},
	}
	_, report := Check(testTable(claims), DefaultRules(), now)
	assert.True(t, report.Fatal())
	assert.Equal(t, 1, report.FutureDates)
}

func TestCheck_DateRangeAndProfile(t *testing.T) {
	claims := []model.Claim{
		{ClaimID: "C1", PatientID: "M1", DateOfService: date("2024-03-10"), BilledAmount: amount(100)},
		{ClaimID: "C2", PatientID: "M2", DateOfService: date("2024-03-01"), BilledAmount: amount(300)},
	}
	_, report := Check(testTable(claims), DefaultRules(), now)

	require.NotNil(t, report.DateMin)
	require.NotNil(t, report.DateMax)
	assert.Equal(t, "2024-03-01", report.DateMin.Format("2006-01-02"))
	assert.Equal(t, "2024-03-10", report.DateMax.Format("2006-01-02"))

	require.NotEmpty(t, report.Amounts)
	billed := report.Amounts[0]
	assert.Equal(t, 2, billed.Present)
	assert.InDelta(t, 100.0, billed.Min, 0.001)
	assert.InDelta(t, 300.0, billed.Max, 0.001)
	assert.InDelta(t, 200.0, billed.Mean, 0.001)
}

func TestCheck_GrainInference(t *testing.T) {
	claims := []model.Claim{
		{ClaimID: "C1", PatientID: "M1", DateOfService: date("2024-03-01"), BilledAmount: amount(100)},
		{ClaimID: "C2", PatientID: "M1", DateOfService: date("2024-03-02"), BilledAmount: amount(100)},
	}
	_, report := Check(testTable(claims), DefaultRules(), now)
	assert.Equal(t, "One row per claim (unique Claim ID).", report.Grain)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	body := `
rules:
  required_columns: ["Billed Amount", "Claim ID"]
  max_future_days: 7
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Billed Amount", "Claim ID"}, rules.RequiredColumns)
	assert.Equal(t, 7, rules.MaxFutureDays)
}

func TestLoadRules_DefaultsFill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: {}\n"), 0644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
