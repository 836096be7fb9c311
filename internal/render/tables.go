package render

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/claims-cli/internal/metrics"
	"github.com/sells-group/claims-cli/internal/model"
	"github.com/sells-group/claims-cli/internal/quality"
)

// cleanHeader is the canonical column order of the cleaned-claims export.
var cleanHeader = []string{
	"Claim ID", "Provider ID", "Patient ID", "Date of Service",
	"Billed Amount", "Allowed Amount", "Paid Amount",
	"Procedure Code", "Diagnosis Code", "Insurance Type", "Claim Status",
	"Reason Code", "Follow-up Required", "AR Status", "Outcome",
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return eris.Wrapf(err, "render: write %s", path)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "render: flush %s", path)
	}
	return f.Close()
}

func money(v float64) string { return strconv.FormatFloat(round2(v), 'f', 2, 64) }

func pct(v float64) string { return strconv.FormatFloat(round2(v), 'f', 2, 64) }

func amount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// WriteCleanClaims exports the cleaned table with its canonical columns.
// Amounts are written unrounded; this file is the input to downstream
// recomputation, not a presentation artifact.
func WriteCleanClaims(path string, claims []model.Claim) error {
	rows := make([][]string, 0, len(claims)+1)
	rows = append(rows, cleanHeader)
	for _, c := range claims {
		rows = append(rows, []string{
			c.ClaimID, c.ProviderID, c.PatientID, date(c.DateOfService),
			amount(c.BilledAmount), amount(c.AllowedAmount), amount(c.PaidAmount),
			c.ProcedureCode, c.DiagnosisCode, c.InsuranceType, c.ClaimStatus,
			c.ReasonCode, c.FollowUpRequired, c.ARStatus, c.Outcome,
		})
	}
	return writeCSV(path, rows)
}

// kpiPairs returns the KPI summary as ordered (name, value) pairs, shared by
// the wide and long exports so the two files can never disagree. The anomaly
// percentile and threshold ride along so document regeneration can recover
// them without recomputing the distribution.
func kpiPairs(k metrics.KPISummary, a metrics.AnomalyReport) [][2]string {
	pairs := [][2]string{
		{"row_count", strconv.Itoa(k.ClaimCount)},
		{"column_count", strconv.Itoa(k.ColumnCount)},
		{"total_billed_amount", money(k.TotalBilled)},
		{"avg_claim_amount", money(k.AvgClaim)},
		{"median_claim_amount", money(k.MedianClaim)},
		{"p95_claim_amount", money(k.P95Claim)},
		{"min_claim_amount", money(k.MinClaim)},
		{"max_claim_amount", money(k.MaxClaim)},
		{"unique_patients", strconv.Itoa(k.UniquePatients)},
		{"unique_diagnoses", strconv.Itoa(k.UniqueDiagnoses)},
		{"top_diagnosis_code", k.TopDiagnosisCode},
		{"top_diagnosis_total_billed", money(k.TopDiagnosisBilled)},
		{"top_diagnosis_pct_of_total", pct(k.TopDiagnosisShare)},
		{"date_min", date(k.DateMin)},
		{"date_max", date(k.DateMax)},
		{"member_months", strconv.Itoa(k.MemberMonths)},
	}
	pmpm := ""
	if k.MemberMonths > 0 {
		pmpm = strconv.FormatFloat(k.PMPMBilled, 'f', 4, 64)
	}
	pairs = append(pairs, [2]string{"pmpm_billed", pmpm})

	return append(pairs,
		[2]string{"anomaly_percentile", strconv.FormatFloat(a.Percentile, 'f', -1, 64)},
		[2]string{"anomaly_threshold", money(a.Threshold)},
		[2]string{"anomaly_count", strconv.Itoa(len(a.Flagged))},
	)
}

// WriteKPISummary writes the wide one-row KPI table.
func WriteKPISummary(path string, k metrics.KPISummary, a metrics.AnomalyReport) error {
	pairs := kpiPairs(k, a)
	header := make([]string, len(pairs))
	values := make([]string, len(pairs))
	for i, p := range pairs {
		header[i], values[i] = p[0], p[1]
	}
	return writeCSV(path, [][]string{header, values})
}

// WriteKPILong writes the long metric/value KPI table.
func WriteKPILong(path string, k metrics.KPISummary, a metrics.AnomalyReport) error {
	rows := [][]string{{"metric", "value"}}
	for _, p := range kpiPairs(k, a) {
		rows = append(rows, []string{p[0], p[1]})
	}
	return writeCSV(path, rows)
}

// WriteMissingness writes per-column missing counts and percentages.
func WriteMissingness(path string, cols []quality.ColumnStat) error {
	rows := [][]string{{"column", "missing_count", "missing_pct"}}
	for _, c := range cols {
		rows = append(rows, []string{c.Name, strconv.Itoa(c.MissingCount), pct(c.MissingPct)})
	}
	return writeCSV(path, rows)
}

// WriteBasicProfile writes min/max/mean for the amount columns.
func WriteBasicProfile(path string, profiles []quality.AmountProfile) error {
	rows := [][]string{{"column", "present", "min", "max", "mean"}}
	for _, p := range profiles {
		rows = append(rows, []string{
			p.Column, strconv.Itoa(p.Present), money(p.Min), money(p.Max), money(p.Mean),
		})
	}
	return writeCSV(path, rows)
}

// WriteConcentration writes the cost-concentration cutoff table.
func WriteConcentration(path string, rows []metrics.ConcentrationRow) error {
	out := [][]string{{"top_pct_patients", "patient_count", "total_patients", "cost_share_pct"}}
	for _, r := range rows {
		out = append(out, []string{
			strconv.FormatFloat(r.TopPct, 'f', -1, 64),
			strconv.Itoa(r.PatientCount),
			strconv.Itoa(r.TotalPatients),
			pct(r.CostSharePct),
		})
	}
	return writeCSV(path, out)
}

// WriteAnomalies writes the flagged-patient table. The threshold row count
// lives in the report, not here; this file is one row per flagged patient.
func WriteAnomalies(path string, report metrics.AnomalyReport) error {
	rows := [][]string{{"patient_id", "claim_count", "total_billed", "avg_claim_amount", "z_score"}}
	for _, a := range report.Flagged {
		rows = append(rows, []string{
			a.PatientID,
			strconv.Itoa(a.ClaimCount),
			money(a.TotalBilled),
			money(a.AvgClaim),
			fmt.Sprintf("%.4f", a.ZScore),
		})
	}
	return writeCSV(path, rows)
}
