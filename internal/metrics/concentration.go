package metrics

import (
	"math"
	"sort"

	"github.com/sells-group/claims-cli/internal/model"
)

// PatientTotal is one patient's aggregate over the cleaned table.
type PatientTotal struct {
	PatientID   string  `json:"patient_id"`
	ClaimCount  int     `json:"claim_count"`
	TotalBilled float64 `json:"total_billed"`
}

// ConcentrationRow is one cutoff of the cost-concentration table: the share
// of total cost contributed by the top TopPct percent of patients.
type ConcentrationRow struct {
	TopPct        float64 `json:"top_pct_patients"`
	PatientCount  int     `json:"patient_count"`
	TotalPatients int     `json:"total_patients"`
	CostSharePct  float64 `json:"cost_share_pct"`
}

// CurvePoint is one point of the full Pareto curve.
type CurvePoint struct {
	PatientPct float64 `json:"patient_pct"` // cumulative % of patients
	CostPct    float64 `json:"cost_pct"`    // cumulative % of billed amount
}

// PatientTotals aggregates billed amounts per patient, sorted descending by
// total. Equal totals are ordered by patient id ascending so the ranking is
// stable across runs.
func PatientTotals(claims []model.Claim) []PatientTotal {
	byPatient := make(map[string]*PatientTotal)
	for _, c := range claims {
		if c.PatientID == "" || c.BilledAmount == nil {
			continue
		}
		pt, ok := byPatient[c.PatientID]
		if !ok {
			pt = &PatientTotal{PatientID: c.PatientID}
			byPatient[c.PatientID] = pt
		}
		pt.ClaimCount++
		pt.TotalBilled += *c.BilledAmount
	}

	totals := make([]PatientTotal, 0, len(byPatient))
	for _, pt := range byPatient {
		totals = append(totals, *pt)
	}
	sort.Slice(totals, func(a, b int) bool {
		if totals[a].TotalBilled != totals[b].TotalBilled {
			return totals[a].TotalBilled > totals[b].TotalBilled
		}
		return totals[a].PatientID < totals[b].PatientID
	})
	return totals
}

// CostConcentration computes the cost share of the top N% of cost-ranked
// patients for each cutoff (cutoffs are percents, e.g. 1, 5, 10). The top
// group always contains at least one patient.
func CostConcentration(totals []PatientTotal, cutoffs []float64) []ConcentrationRow {
	n := len(totals)
	grandTotal := 0.0
	for _, pt := range totals {
		grandTotal += pt.TotalBilled
	}
	if n == 0 || grandTotal <= 0 {
		return nil
	}

	rows := make([]ConcentrationRow, 0, len(cutoffs))
	for _, pct := range cutoffs {
		k := int(math.Ceil(float64(n) * pct / 100))
		if k < 1 {
			k = 1
		}
		if k > n {
			k = n
		}
		topSum := 0.0
		for _, pt := range totals[:k] {
			topSum += pt.TotalBilled
		}
		rows = append(rows, ConcentrationRow{
			TopPct:        pct,
			PatientCount:  k,
			TotalPatients: n,
			CostSharePct:  100 * topSum / grandTotal,
		})
	}
	return rows
}

// ConcentrationCurve returns the full cumulative Pareto curve, one point per
// patient in rank order.
func ConcentrationCurve(totals []PatientTotal) []CurvePoint {
	n := len(totals)
	grandTotal := 0.0
	for _, pt := range totals {
		grandTotal += pt.TotalBilled
	}
	if n == 0 || grandTotal <= 0 {
		return nil
	}

	points := make([]CurvePoint, n)
	cum := 0.0
	for i, pt := range totals {
		cum += pt.TotalBilled
		points[i] = CurvePoint{
			PatientPct: 100 * float64(i+1) / float64(n),
			CostPct:    100 * cum / grandTotal,
		}
	}
	return points
}
