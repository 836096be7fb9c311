package metrics

import (
	"sort"

	"github.com/sells-group/claims-cli/internal/model"
)

// PatientAnomaly is one flagged patient.
type PatientAnomaly struct {
	PatientID   string  `json:"patient_id"`
	ClaimCount  int     `json:"claim_count"`
	TotalBilled float64 `json:"total_billed"`
	AvgClaim    float64 `json:"avg_claim_amount"`
	ZScore      float64 `json:"z_score"` // of the average within the average distribution
}

// AnomalyReport holds the flagged patients and the threshold that produced
// them.
type AnomalyReport struct {
	Percentile float64          `json:"percentile"` // e.g. 0.99
	Threshold  float64          `json:"threshold"`  // average-claim cutoff
	Flagged    []PatientAnomaly `json:"flagged"`
}

// DetectAnomalies flags patients whose average claim amount exceeds the given
// percentile of the per-patient average-claim distribution. Flagged patients
// are returned descending by average, ties broken by patient id.
func DetectAnomalies(claims []model.Claim, percentile float64) AnomalyReport {
	totals := PatientTotals(claims)
	report := AnomalyReport{Percentile: percentile}
	if len(totals) == 0 {
		return report
	}

	avgs := make([]float64, len(totals))
	for i, pt := range totals {
		avgs[i] = pt.TotalBilled / float64(pt.ClaimCount)
	}

	report.Threshold = Percentile(avgs, percentile)
	m := mean(avgs)
	sd := stddev(avgs, m)

	for i, pt := range totals {
		if avgs[i] <= report.Threshold {
			continue
		}
		a := PatientAnomaly{
			PatientID:   pt.PatientID,
			ClaimCount:  pt.ClaimCount,
			TotalBilled: pt.TotalBilled,
			AvgClaim:    avgs[i],
		}
		if sd > 0 {
			a.ZScore = (avgs[i] - m) / sd
		}
		report.Flagged = append(report.Flagged, a)
	}

	sort.Slice(report.Flagged, func(a, b int) bool {
		if report.Flagged[a].AvgClaim != report.Flagged[b].AvgClaim {
			return report.Flagged[a].AvgClaim > report.Flagged[b].AvgClaim
		}
		return report.Flagged[a].PatientID < report.Flagged[b].PatientID
	})
	return report
}
