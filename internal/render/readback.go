package render

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/claims-cli/internal/metrics"
)

// Readback parses previously written tables so the documents can be
// regenerated without re-running the analysis. Only the tables the documents
// consume are read back.

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "render: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "render: parse %s", path)
	}
	return records, nil
}

// ReadKPISummary reads the wide one-row KPI table back into a summary plus
// the anomaly percentile and threshold persisted alongside it. The returned
// report has no flagged patients; those live in their own table.
func ReadKPISummary(path string) (metrics.KPISummary, metrics.AnomalyReport, error) {
	var (
		k metrics.KPISummary
		a metrics.AnomalyReport
	)

	records, err := readCSV(path)
	if err != nil {
		return k, a, err
	}
	if len(records) < 2 {
		return k, a, eris.Errorf("render: %s has no data row", path)
	}

	row := make(map[string]string, len(records[0]))
	for i, name := range records[0] {
		if i < len(records[1]) {
			row[name] = records[1][i]
		}
	}

	k.ClaimCount = atoi(row["row_count"])
	k.ColumnCount = atoi(row["column_count"])
	k.TotalBilled = atof(row["total_billed_amount"])
	k.AvgClaim = atof(row["avg_claim_amount"])
	k.MedianClaim = atof(row["median_claim_amount"])
	k.P95Claim = atof(row["p95_claim_amount"])
	k.MinClaim = atof(row["min_claim_amount"])
	k.MaxClaim = atof(row["max_claim_amount"])
	k.UniquePatients = atoi(row["unique_patients"])
	k.UniqueDiagnoses = atoi(row["unique_diagnoses"])
	k.TopDiagnosisCode = row["top_diagnosis_code"]
	k.TopDiagnosisBilled = atof(row["top_diagnosis_total_billed"])
	k.TopDiagnosisShare = atof(row["top_diagnosis_pct_of_total"])
	k.MemberMonths = atoi(row["member_months"])
	k.PMPMBilled = atof(row["pmpm_billed"])
	k.DateMin = parseDate(row["date_min"])
	k.DateMax = parseDate(row["date_max"])

	a.Percentile = atof(row["anomaly_percentile"])
	a.Threshold = atof(row["anomaly_threshold"])
	return k, a, nil
}

// ReadConcentration reads the cost-concentration table back.
func ReadConcentration(path string) ([]metrics.ConcentrationRow, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, nil
	}

	var rows []metrics.ConcentrationRow
	for _, rec := range records[1:] {
		if len(rec) < 4 {
			continue
		}
		rows = append(rows, metrics.ConcentrationRow{
			TopPct:        atof(rec[0]),
			PatientCount:  atoi(rec[1]),
			TotalPatients: atoi(rec[2]),
			CostSharePct:  atof(rec[3]),
		})
	}
	return rows, nil
}

// ReadAnomalies reads the flagged-patient table back. The percentile and
// threshold live in the KPI summary table; this file holds one row per
// flagged patient.
func ReadAnomalies(path string) ([]metrics.PatientAnomaly, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	var flagged []metrics.PatientAnomaly
	for _, rec := range records[1:] {
		if len(rec) < 5 {
			continue
		}
		flagged = append(flagged, metrics.PatientAnomaly{
			PatientID:   rec[0],
			ClaimCount:  atoi(rec[1]),
			TotalBilled: atof(rec[2]),
			AvgClaim:    atof(rec[3]),
			ZScore:      atof(rec[4]),
		})
	}
	return flagged, nil
}

// ReadDictionaryInput reads a cleaned-claims export for the data dictionary.
func ReadDictionaryInput(path string) (DictionaryInput, error) {
	var in DictionaryInput

	records, err := readCSV(path)
	if err != nil {
		return in, err
	}
	if len(records) == 0 {
		return in, eris.Errorf("render: %s is empty", path)
	}
	in.Source = path
	in.Header = records[0]
	in.Records = records[1:]
	return in, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
