package render

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/claims-cli/internal/metrics"
	"github.com/sells-group/claims-cli/internal/quality"
)

var numbers = message.NewPrinter(language.English)

func count(n int) string { return numbers.Sprintf("%d", n) }

func moneyFmt(v float64) string { return numbers.Sprintf("%.2f", round2(v)) }

func cutoff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// ReportData bundles everything the pipeline report needs. Every number in
// the rendered document comes from these computed values.
type ReportData struct {
	Input   string
	Quality *quality.Report
	KPIs    metrics.KPISummary
	Rows    []metrics.ConcentrationRow
	Anomaly metrics.AnomalyReport
	Figures []string
}

// WriteReport renders the top-level pipeline report.
func WriteReport(path string, d ReportData) error {
	var b strings.Builder

	b.WriteString("# Healthcare Claims Pipeline Report\n\n")
	fmt.Fprintf(&b, "Generated by `claims-cli run` on %s.\n\n", time.Now().UTC().Format("2006-01-02"))

	b.WriteString("## Inputs\n\n")
	fmt.Fprintf(&b, "- Input file: `%s`\n", d.Input)
	fmt.Fprintf(&b, "- Clean dataset: `data/%s`\n\n", CleanClaimsFile)

	if d.Quality != nil {
		b.WriteString("## Quality\n\n")
		fmt.Fprintf(&b, "- Raw rows: %s\n", count(d.Quality.RowCount))
		fmt.Fprintf(&b, "- Duplicate claim ids dropped: %s\n", count(d.Quality.DuplicateClaimIDs))
		fmt.Fprintf(&b, "- Missing or non-positive billed amounts dropped: %s\n", count(d.Quality.InvalidBilled))
		fmt.Fprintf(&b, "- Unparseable service dates dropped: %s\n", count(d.Quality.UnparseableDates))
		if d.Quality.NegativeAllowed > 0 || d.Quality.NegativePaid > 0 {
			fmt.Fprintf(&b, "- Negative allowed/paid amounts (kept, counted): %s / %s\n",
				count(d.Quality.NegativeAllowed), count(d.Quality.NegativePaid))
		}
		b.WriteString("\n")
	}

	k := d.KPIs
	b.WriteString("## Key KPIs\n\n")
	fmt.Fprintf(&b, "- Clean rows: %s\n", count(k.ClaimCount))
	fmt.Fprintf(&b, "- Total billed amount: $%s\n", moneyFmt(k.TotalBilled))
	fmt.Fprintf(&b, "- Avg claim amount: $%s\n", moneyFmt(k.AvgClaim))
	fmt.Fprintf(&b, "- Median claim amount: $%s\n", moneyFmt(k.MedianClaim))
	fmt.Fprintf(&b, "- P95 claim amount: $%s\n", moneyFmt(k.P95Claim))
	if k.UniquePatients > 0 {
		fmt.Fprintf(&b, "- Unique patients: %s\n", count(k.UniquePatients))
	}
	if k.UniqueDiagnoses > 0 {
		fmt.Fprintf(&b, "- Unique diagnoses: %s\n", count(k.UniqueDiagnoses))
	}
	if k.TopDiagnosisCode != "" {
		fmt.Fprintf(&b, "- Top diagnosis: %s ($%s, %s%% of total)\n",
			k.TopDiagnosisCode, moneyFmt(k.TopDiagnosisBilled), pct(k.TopDiagnosisShare))
	}
	if k.MemberMonths > 0 {
		fmt.Fprintf(&b, "- PMPM billed: $%s over %s member-months\n",
			moneyFmt(k.PMPMBilled), count(k.MemberMonths))
	}
	if k.DateMin != nil && k.DateMax != nil {
		fmt.Fprintf(&b, "- Date range: %s to %s\n", date(k.DateMin), date(k.DateMax))
	}
	b.WriteString("\n")

	if len(d.Rows) > 0 {
		b.WriteString("## Cost Concentration\n\n")
		b.WriteString("| % of Patients | Patients | % of Total Cost |\n")
		b.WriteString("|---|---|---|\n")
		for _, r := range d.Rows {
			fmt.Fprintf(&b, "| Top %s%% | %s | %s%% |\n",
				cutoff(r.TopPct), count(r.PatientCount), pct(r.CostSharePct))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Anomaly Detection\n\n")
	fmt.Fprintf(&b, "- Flagged patients (avg claim above the P%.0f of per-patient averages): %s\n",
		d.Anomaly.Percentile*100, count(len(d.Anomaly.Flagged)))
	if d.Anomaly.Threshold > 0 {
		fmt.Fprintf(&b, "- Threshold: $%s\n", moneyFmt(d.Anomaly.Threshold))
	}
	if len(d.Anomaly.Flagged) == 0 {
		b.WriteString("- Note: tightly bounded data may flag no patients; this is expected.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Outputs\n\n")
	b.WriteString("Tables:\n\n")
	for _, name := range []string{MissingnessFile, BasicProfileFile, KPISummaryFile, KPILongFile, ConcentrationFile, AnomaliesFile} {
		fmt.Fprintf(&b, "- `tables/%s`\n", name)
	}
	b.WriteString("\n")

	if len(d.Figures) > 0 {
		b.WriteString("Figures:\n\n")
		for _, f := range d.Figures {
			fmt.Fprintf(&b, "- `figures/%s`\n", f)
		}
		b.WriteString("\n")
		for _, f := range d.Figures {
			title := figureTitle(f)
			fmt.Fprintf(&b, "### %s\n\n![%s](figures/%s)\n\n", title, title, f)
		}
	}

	return writeDoc(path, b.String())
}

// WriteDecisionMemo renders the findings-and-recommendations memo from the
// computed tables.
func WriteDecisionMemo(path string, d ReportData) error {
	var b strings.Builder
	k := d.KPIs

	b.WriteString("# Decision Memo: Claims Cost Drivers\n\n")

	b.WriteString("## Findings\n\n")
	fmt.Fprintf(&b, "- The cleaned dataset covers %s claims across %s patients, totaling $%s billed.\n",
		count(k.ClaimCount), count(k.UniquePatients), moneyFmt(k.TotalBilled))
	fmt.Fprintf(&b, "- The typical claim bills $%s (median), with the top 5%% of claims above $%s.\n",
		moneyFmt(k.MedianClaim), moneyFmt(k.P95Claim))
	if k.TopDiagnosisCode != "" {
		fmt.Fprintf(&b, "- Diagnosis %s is the leading cost driver at %s%% of total spend ($%s).\n",
			k.TopDiagnosisCode, pct(k.TopDiagnosisShare), moneyFmt(k.TopDiagnosisBilled))
	}
	for _, r := range d.Rows {
		fmt.Fprintf(&b, "- The top %s%% of patients (%s of %s) account for %s%% of total cost.\n",
			cutoff(r.TopPct), count(r.PatientCount), count(r.TotalPatients), pct(r.CostSharePct))
	}
	fmt.Fprintf(&b, "- %s patients have an average claim above the high-cost threshold ($%s).\n",
		count(len(d.Anomaly.Flagged)), moneyFmt(d.Anomaly.Threshold))
	b.WriteString("\n")

	b.WriteString("## Recommendations\n\n")
	b.WriteString("- Target care-management outreach at the highest-cost patient decile; concentration there determines the ROI ceiling.\n")
	if k.TopDiagnosisCode != "" {
		fmt.Fprintf(&b, "- Review utilization for diagnosis %s; as the largest single cost line it is the first candidate for prevention or contract renegotiation.\n",
			k.TopDiagnosisCode)
	}
	b.WriteString("- Re-run this pipeline on each data refresh; all figures in this memo are regenerated from the output tables, never edited by hand.\n")
	b.WriteString("\n")

	b.WriteString("## Caveats\n\n")
	b.WriteString("- Synthetic data shows flatter cost concentration than production claims.\n")
	b.WriteString("- No clinical outcomes or member demographics are included; findings are cost-only.\n")

	return writeDoc(path, b.String())
}

// DictionaryInput is the cleaned table in raw form, as read back from the
// cleaned-claims export.
type DictionaryInput struct {
	Source  string
	Header  []string
	Records [][]string
}

// WriteDataDictionary renders one row per column with an inferred type,
// missingness and example values.
func WriteDataDictionary(path string, in DictionaryInput) error {
	var b strings.Builder
	rows := len(in.Records)

	b.WriteString("# Data Dictionary\n\n")
	b.WriteString("## Dataset Overview\n\n")
	fmt.Fprintf(&b, "- Source: `%s`\n", in.Source)
	fmt.Fprintf(&b, "- Rows: %s\n", count(rows))
	fmt.Fprintf(&b, "- Columns: %d\n", len(in.Header))
	fmt.Fprintf(&b, "- Grain: %s\n\n", inferDictionaryGrain(in))

	b.WriteString("## Column Details\n\n")
	b.WriteString("| Column | Type | % Missing | Example Values |\n")
	b.WriteString("|---|---|---:|---|\n")

	for i, col := range in.Header {
		values := columnValues(in.Records, i)
		missing := 0
		var present []string
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				missing++
			} else if len(present) < 5 {
				present = append(present, v)
			}
		}
		missingPct := 0.0
		if rows > 0 {
			missingPct = 100 * float64(missing) / float64(rows)
		}
		examples := "(all null)"
		if len(present) > 0 {
			examples = strings.Join(present, "; ")
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", col, inferColumnType(values), pct(missingPct), examples)
	}
	b.WriteString("\n")

	b.WriteString("## Assumptions\n\n")
	b.WriteString("- Amounts are in USD; billed amount is the charge before adjudication.\n")
	b.WriteString("- Rows with a missing or non-positive billed amount, an unparseable service date, or a repeated claim id were removed during cleaning.\n")

	return writeDoc(path, b.String())
}

func writeDoc(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return eris.Wrapf(err, "render: write %s", path)
	}
	return nil
}

func columnValues(records [][]string, i int) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		if i < len(rec) {
			out = append(out, rec[i])
		} else {
			out = append(out, "")
		}
	}
	return out
}

func inferDictionaryGrain(in DictionaryInput) string {
	idx := -1
	for i, h := range in.Header {
		if strings.EqualFold(strings.TrimSpace(h), "Claim ID") || strings.EqualFold(strings.TrimSpace(h), "claim_id") {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "Unable to determine; no claim id column."
	}
	seen := make(map[string]bool, len(in.Records))
	for _, rec := range in.Records {
		if idx >= len(rec) {
			continue
		}
		if seen[rec[idx]] {
			return "Multiple rows per claim id; check the cleaning step."
		}
		seen[rec[idx]] = true
	}
	return "One row per claim (unique Claim ID)."
}

// inferColumnType labels a column from its non-empty values: every value
// parses as a date, an integer, a number, or it is a string.
func inferColumnType(values []string) string {
	kind := ""
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		var this string
		switch {
		case parsesAsDate(v):
			this = "datetime"
		case parsesAsInt(v):
			this = "integer"
		case parsesAsFloat(v):
			this = "numeric"
		default:
			this = "string"
		}
		switch {
		case kind == "" || kind == this:
			kind = this
		case kind == "integer" && this == "numeric", kind == "numeric" && this == "integer":
			kind = "numeric"
		default:
			return "string"
		}
	}
	if kind == "" {
		return "string"
	}
	return kind
}

func parsesAsDate(v string) bool {
	for _, layout := range []string{"2006-01-02", "01/02/2006"} {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

func parsesAsInt(v string) bool {
	_, err := strconv.ParseInt(v, 10, 64)
	return err == nil
}

func parsesAsFloat(v string) bool {
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

func figureTitle(name string) string {
	base := strings.TrimSuffix(name, ".png")
	words := strings.Split(base, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
