// Package quality validates the loaded claims table against integrity rules
// and produces a cleaned table plus a structured report. Rule violations are
// counted, never raised; the orchestrator decides whether a report is fatal.
package quality

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/claims-cli/internal/model"
)

// ColumnStat holds per-column missingness.
type ColumnStat struct {
	Name         string
	MissingCount int
	MissingPct   float64
}

// AmountProfile holds basic stats for an amount-typed column, computed over
// the raw table before cleaning.
type AmountProfile struct {
	Column  string
	Present int
	Min     float64
	Max     float64
	Mean    float64
}

// Report is the structured output of the integrity checks.
type Report struct {
	RowCount    int
	ColumnCount int

	Columns []ColumnStat
	Amounts []AmountProfile

	DuplicateClaimIDs int // rows beyond the first occurrence of a claim id
	InvalidBilled     int // missing or non-positive billed amount, dropped
	UnparseableDates  int // missing or unparseable service date, dropped
	NegativeAllowed   int // counted, rows kept
	NegativePaid      int // counted, rows kept
	FutureDates       int

	DateMin *time.Time
	DateMax *time.Time
	Grain   string

	// Failures are fatal-grade findings: conditions under which downstream
	// computation would be meaningless.
	Failures []string
}

// Fatal reports whether the checks found a condition that should halt the run.
func (r *Report) Fatal() bool { return len(r.Failures) > 0 }

// Check runs the integrity rules against the raw table and returns the
// cleaned rows alongside the report. Cleaning drops rows with a missing or
// non-positive billed amount or an unparseable service date, and keeps only
// the first occurrence of each claim id. Nothing else is mutated.
func Check(t *model.Table, rules Rules, now time.Time) ([]model.Claim, *Report) {
	r := &Report{
		RowCount:    t.RowCount(),
		ColumnCount: t.ColumnCount(),
		Columns:     missingness(t),
		Amounts:     amountProfiles(t),
		Grain:       inferGrain(t),
	}

	if t.RowCount() == 0 {
		r.Failures = append(r.Failures, "row count is 0; the input dataset appears empty")
	}
	for _, col := range rules.RequiredColumns {
		if t.ColumnIndex(col) < 0 {
			r.Failures = append(r.Failures, fmt.Sprintf("missing required column %q", col))
		}
	}

	clean := make([]model.Claim, 0, t.RowCount())
	seen := make(map[string]bool, t.RowCount())
	parsedDates := 0

	for _, c := range t.Claims {
		if c.DateOfService != nil {
			parsedDates++
			if r.DateMin == nil || c.DateOfService.Before(*r.DateMin) {
				r.DateMin = c.DateOfService
			}
			if r.DateMax == nil || c.DateOfService.After(*r.DateMax) {
				r.DateMax = c.DateOfService
			}
		}
		if c.AllowedAmount != nil && *c.AllowedAmount < 0 {
			r.NegativeAllowed++
		}
		if c.PaidAmount != nil && *c.PaidAmount < 0 {
			r.NegativePaid++
		}

		keep := true
		if c.BilledAmount == nil || *c.BilledAmount <= 0 {
			r.InvalidBilled++
			keep = false
		}
		if c.DateOfService == nil {
			r.UnparseableDates++
			keep = false
		}
		if c.ClaimID != "" {
			if seen[c.ClaimID] {
				r.DuplicateClaimIDs++
				keep = false
			}
			seen[c.ClaimID] = true
		}
		if keep {
			clean = append(clean, c)
		}
	}

	// Date sanity against the wall clock and itself.
	if t.ColumnIndex(model.DateColumns...) >= 0 && parsedDates == 0 && t.RowCount() > 0 {
		r.Failures = append(r.Failures, "service date column exists but no value could be parsed as a date")
	}
	if r.DateMax != nil {
		latest := now.AddDate(0, 0, rules.MaxFutureDays)
		if r.DateMax.After(latest) {
			r.FutureDates++
			r.Failures = append(r.Failures, fmt.Sprintf(
				"date max (%s) is in the future; check service date parsing", r.DateMax.Format("2006-01-02")))
		}
	}
	if r.DateMin != nil && r.DateMax != nil && r.DateMin.After(*r.DateMax) {
		r.Failures = append(r.Failures, "date min is after date max; check service date column")
	}

	zap.L().Info("quality: checks complete",
		zap.Int("raw_rows", r.RowCount),
		zap.Int("clean_rows", len(clean)),
		zap.Int("invalid_billed", r.InvalidBilled),
		zap.Int("unparseable_dates", r.UnparseableDates),
		zap.Int("duplicate_claim_ids", r.DuplicateClaimIDs),
		zap.Int("failures", len(r.Failures)),
	)

	return clean, r
}

// missingness counts empty cells per source column, sorted by missing count
// descending then column name.
func missingness(t *model.Table) []ColumnStat {
	stats := make([]ColumnStat, len(t.Header))
	for i, name := range t.Header {
		stats[i].Name = name
		for _, row := range t.Records {
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				stats[i].MissingCount++
			}
		}
		if len(t.Records) > 0 {
			stats[i].MissingPct = 100 * float64(stats[i].MissingCount) / float64(len(t.Records))
		}
	}
	sort.SliceStable(stats, func(a, b int) bool {
		if stats[a].MissingCount != stats[b].MissingCount {
			return stats[a].MissingCount > stats[b].MissingCount
		}
		return stats[a].Name < stats[b].Name
	})
	return stats
}

func amountProfiles(t *model.Table) []AmountProfile {
	type amountCol struct {
		name string
		get  func(model.Claim) *float64
	}
	cols := []amountCol{}
	if i := t.ColumnIndex(model.BilledColumns...); i >= 0 {
		cols = append(cols, amountCol{t.Header[i], func(c model.Claim) *float64 { return c.BilledAmount }})
	}
	if i := t.ColumnIndex(model.AllowedColumns...); i >= 0 {
		cols = append(cols, amountCol{t.Header[i], func(c model.Claim) *float64 { return c.AllowedAmount }})
	}
	if i := t.ColumnIndex(model.PaidColumns...); i >= 0 {
		cols = append(cols, amountCol{t.Header[i], func(c model.Claim) *float64 { return c.PaidAmount }})
	}

	profiles := make([]AmountProfile, 0, len(cols))
	for _, col := range cols {
		p := AmountProfile{Column: col.name}
		sum := 0.0
		for _, c := range t.Claims {
			v := col.get(c)
			if v == nil {
				continue
			}
			if p.Present == 0 || *v < p.Min {
				p.Min = *v
			}
			if p.Present == 0 || *v > p.Max {
				p.Max = *v
			}
			p.Present++
			sum += *v
		}
		if p.Present > 0 {
			p.Mean = sum / float64(p.Present)
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// inferGrain guesses the table grain for auditability.
func inferGrain(t *model.Table) string {
	if t.ColumnIndex(model.ClaimIDColumns...) >= 0 {
		seen := make(map[string]bool, t.RowCount())
		for _, c := range t.Claims {
			if seen[c.ClaimID] {
				return "Claim ID present but not unique; grain unclear."
			}
			seen[c.ClaimID] = true
		}
		return "One row per claim (unique Claim ID)."
	}
	if t.ColumnIndex(model.PatientIDColumns...) >= 0 {
		patients := make(map[string]bool, t.RowCount())
		for _, c := range t.Claims {
			patients[c.PatientID] = true
		}
		if len(patients) == t.RowCount() {
			return "One row per patient (Patient ID unique across rows)."
		}
		return "Multiple rows per patient; likely one row per claim/service."
	}
	return "Unable to infer grain (no Claim ID or Patient ID)."
}
