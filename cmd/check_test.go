package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/claims-cli/internal/quality"
)

func TestPrintQualityReport(t *testing.T) {
	min := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	max := time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)
	r := &quality.Report{
		RowCount:          1000,
		ColumnCount:       15,
		DuplicateClaimIDs: 3,
		InvalidBilled:     12,
		UnparseableDates:  2,
		DateMin:           &min,
		DateMax:           &max,
		Grain:             "One row per claim (unique Claim ID).",
		Columns: []quality.ColumnStat{
			{Name: "Paid Amount", MissingCount: 40, MissingPct: 4},
		},
	}

	var buf bytes.Buffer
	printQualityReport(&buf, "claim_data.csv", r)
	out := buf.String()

	assert.Contains(t, out, "Rows: 1000  Columns: 15")
	assert.Contains(t, out, "Date range: 2025-01-03 to 2025-03-28")
	assert.Contains(t, out, "duplicate claim ids")
	assert.Contains(t, out, "Paid Amount")
	assert.NotContains(t, out, "Fatal findings")
}

func TestPrintQualityReportFatal(t *testing.T) {
	r := &quality.Report{
		Failures: []string{`missing required column "Billed Amount"`},
	}

	var buf bytes.Buffer
	printQualityReport(&buf, "bad.csv", r)

	assert.Contains(t, buf.String(), "Fatal findings")
	assert.Contains(t, buf.String(), "Billed Amount")
}
