package metrics

import (
	"sort"

	"github.com/sells-group/claims-cli/internal/model"
)

// MonthlyTotal is one calendar month's billed total plus its trailing rolling
// average (window includes the month itself; shorter at the series start).
type MonthlyTotal struct {
	Month       string  `json:"month"` // "YYYY-MM"
	TotalBilled float64 `json:"total_billed"`
	RollingAvg  float64 `json:"rolling_avg"`
}

// MonthlyTotals aggregates billed amounts per service month in chronological
// order. window is the rolling-average span in months; values < 1 disable the
// rolling column (it mirrors the monthly total).
func MonthlyTotals(claims []model.Claim, window int) []MonthlyTotal {
	byMonth := make(map[string]float64)
	for _, c := range claims {
		m := c.ServiceMonth()
		if m == "" || c.BilledAmount == nil {
			continue
		}
		byMonth[m] += *c.BilledAmount
	}
	if len(byMonth) == 0 {
		return nil
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	if window < 1 {
		window = 1
	}
	out := make([]MonthlyTotal, len(months))
	for i, m := range months {
		out[i] = MonthlyTotal{Month: m, TotalBilled: byMonth[m]}

		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		sum := 0.0
		for j := lo; j <= i; j++ {
			sum += byMonth[months[j]]
		}
		out[i].RollingAvg = sum / float64(i-lo+1)
	}
	return out
}
