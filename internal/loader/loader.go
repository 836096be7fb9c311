// Package loader reads a delimited claims file into an in-memory table.
// CSV is the primary format; XLSX exports are accepted as well.
package loader

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/claims-cli/internal/model"
)

// dateLayouts are tried in order when parsing Date of Service.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
}

// Options configures loading.
type Options struct {
	Sheet string // XLSX sheet name; "" = first sheet
}

// Load reads the claims file at path, picking the parser by extension.
func Load(path string, opts Options) (*model.Table, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path, opts.Sheet)
	default:
		records, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return nil, eris.Errorf("loader: %s has no data rows", path)
	}

	t := &model.Table{
		Source:  path,
		Header:  records[0],
		Records: records[1:],
	}
	t.Claims = parseClaims(t)

	zap.L().Info("loader: dataset loaded",
		zap.String("path", path),
		zap.Int("rows", t.RowCount()),
		zap.Int("columns", t.ColumnCount()),
	)
	return t, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow ragged rows, quality checks will surface them

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "loader: read csv")
	}
	return records, nil
}

func readXLSX(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("loader: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("loader: sheet %q not found in %s", sheetName, path)
		}
		sheet = s
	}

	var records [][]string
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		records = append(records, cells)
	}
	return records, nil
}

// parseClaims converts raw records into typed rows. Unparseable amounts and
// dates become nil; the quality checker decides what to do with them.
func parseClaims(t *model.Table) []model.Claim {
	idx := columnIndexes(t)

	claims := make([]model.Claim, 0, len(t.Records))
	for _, row := range t.Records {
		claims = append(claims, model.Claim{
			ClaimID:          cell(row, idx.claimID),
			ProviderID:       cell(row, idx.providerID),
			PatientID:        cell(row, idx.patientID),
			DateOfService:    parseDate(cell(row, idx.date)),
			BilledAmount:     parseAmount(cell(row, idx.billed)),
			AllowedAmount:    parseAmount(cell(row, idx.allowed)),
			PaidAmount:       parseAmount(cell(row, idx.paid)),
			ProcedureCode:    cell(row, idx.procedure),
			DiagnosisCode:    cell(row, idx.diagnosis),
			InsuranceType:    cell(row, idx.insurance),
			ClaimStatus:      cell(row, idx.status),
			ReasonCode:       cell(row, idx.reason),
			FollowUpRequired: cell(row, idx.followUp),
			ARStatus:         cell(row, idx.arStatus),
			Outcome:          cell(row, idx.outcome),
		})
	}
	return claims
}

type indexes struct {
	claimID, providerID, patientID, date    int
	billed, allowed, paid                   int
	procedure, diagnosis, insurance, status int
	reason, followUp, arStatus, outcome     int
}

func columnIndexes(t *model.Table) indexes {
	return indexes{
		claimID:    t.ColumnIndex(model.ClaimIDColumns...),
		providerID: t.ColumnIndex(model.ProviderIDColumns...),
		patientID:  t.ColumnIndex(model.PatientIDColumns...),
		date:       t.ColumnIndex(model.DateColumns...),
		billed:     t.ColumnIndex(model.BilledColumns...),
		allowed:    t.ColumnIndex(model.AllowedColumns...),
		paid:       t.ColumnIndex(model.PaidColumns...),
		procedure:  t.ColumnIndex(model.ProcedureColumns...),
		diagnosis:  t.ColumnIndex(model.DiagnosisColumns...),
		insurance:  t.ColumnIndex(model.InsuranceColumns...),
		status:     t.ColumnIndex(model.StatusColumns...),
		reason:     t.ColumnIndex(model.ReasonColumns...),
		followUp:   t.ColumnIndex(model.FollowUpColumns...),
		arStatus:   t.ColumnIndex(model.ARStatusColumns...),
		outcome:    t.ColumnIndex(model.OutcomeColumns...),
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseAmount parses a monetary cell, tolerating "$" and thousands separators.
func parseAmount(s string) *float64 {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return &d
		}
	}
	return nil
}
