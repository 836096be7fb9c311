package metrics

import (
	"sort"
	"time"

	"github.com/sells-group/claims-cli/internal/model"
)

// KPISummary is the one-row headline summary of the cleaned table.
// Monetary values are unrounded; the renderer applies two-decimal rounding.
type KPISummary struct {
	ClaimCount  int `json:"claim_count"`
	ColumnCount int `json:"column_count"`

	TotalBilled float64 `json:"total_billed_amount"`
	AvgClaim    float64 `json:"avg_claim_amount"`
	MedianClaim float64 `json:"median_claim_amount"`
	P95Claim    float64 `json:"p95_claim_amount"`
	MinClaim    float64 `json:"min_claim_amount"`
	MaxClaim    float64 `json:"max_claim_amount"`

	UniquePatients  int `json:"unique_patients"`
	UniqueDiagnoses int `json:"unique_diagnoses"`

	TopDiagnosisCode   string  `json:"top_diagnosis_code"`
	TopDiagnosisBilled float64 `json:"top_diagnosis_total_billed"`
	TopDiagnosisShare  float64 `json:"top_diagnosis_pct_of_total"` // percent of total billed

	MemberMonths int     `json:"member_months"`
	PMPMBilled   float64 `json:"pmpm_billed"`

	DateMin *time.Time `json:"date_min"`
	DateMax *time.Time `json:"date_max"`
}

// ComputeKPIs computes the KPI summary over cleaned claims. columnCount is
// carried through from the source table for the summary row.
func ComputeKPIs(claims []model.Claim, columnCount int) KPISummary {
	k := KPISummary{
		ClaimCount:  len(claims),
		ColumnCount: columnCount,
	}

	billed := make([]float64, 0, len(claims))
	patients := make(map[string]bool)
	diagnoses := make(map[string]bool)
	diagBilled := make(map[string]float64)
	memberMonths := make(map[string]bool)

	for _, c := range claims {
		if c.BilledAmount != nil {
			billed = append(billed, *c.BilledAmount)
			k.TotalBilled += *c.BilledAmount
			if c.DiagnosisCode != "" {
				diagBilled[c.DiagnosisCode] += *c.BilledAmount
			}
		}
		if c.PatientID != "" {
			patients[c.PatientID] = true
			if m := c.ServiceMonth(); m != "" {
				memberMonths[c.PatientID+"|"+m] = true
			}
		}
		if c.DiagnosisCode != "" {
			diagnoses[c.DiagnosisCode] = true
		}
		if c.DateOfService != nil {
			if k.DateMin == nil || c.DateOfService.Before(*k.DateMin) {
				k.DateMin = c.DateOfService
			}
			if k.DateMax == nil || c.DateOfService.After(*k.DateMax) {
				k.DateMax = c.DateOfService
			}
		}
	}

	if len(billed) > 0 {
		k.AvgClaim = mean(billed)
		k.MedianClaim = Median(billed)
		k.P95Claim = Percentile(billed, 0.95)
		k.MinClaim, k.MaxClaim = billed[0], billed[0]
		for _, v := range billed {
			if v < k.MinClaim {
				k.MinClaim = v
			}
			if v > k.MaxClaim {
				k.MaxClaim = v
			}
		}
	}

	k.UniquePatients = len(patients)
	k.UniqueDiagnoses = len(diagnoses)
	k.MemberMonths = len(memberMonths)
	if k.MemberMonths > 0 {
		k.PMPMBilled = k.TotalBilled / float64(k.MemberMonths)
	}

	if k.TotalBilled > 0 && len(diagBilled) > 0 {
		// Ties broken by code so the summary is stable across runs.
		codes := make([]string, 0, len(diagBilled))
		for code := range diagBilled {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(a, b int) bool {
			if diagBilled[codes[a]] != diagBilled[codes[b]] {
				return diagBilled[codes[a]] > diagBilled[codes[b]]
			}
			return codes[a] < codes[b]
		})
		k.TopDiagnosisCode = codes[0]
		k.TopDiagnosisBilled = diagBilled[codes[0]]
		k.TopDiagnosisShare = 100 * k.TopDiagnosisBilled / k.TotalBilled
	}

	return k
}

// DiagnosisTotal is a diagnosis code with its total billed amount.
type DiagnosisTotal struct {
	Code        string  `json:"code"`
	TotalBilled float64 `json:"total_billed"`
}

// TopDiagnoses returns the n diagnoses with the highest total billed amount,
// descending, ties broken by code ascending.
func TopDiagnoses(claims []model.Claim, n int) []DiagnosisTotal {
	totals := make(map[string]float64)
	for _, c := range claims {
		if c.DiagnosisCode != "" && c.BilledAmount != nil {
			totals[c.DiagnosisCode] += *c.BilledAmount
		}
	}

	out := make([]DiagnosisTotal, 0, len(totals))
	for code, total := range totals {
		out = append(out, DiagnosisTotal{Code: code, TotalBilled: total})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].TotalBilled != out[b].TotalBilled {
			return out[a].TotalBilled > out[b].TotalBilled
		}
		return out[a].Code < out[b].Code
	})

	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
