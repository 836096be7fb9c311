// Package model defines the claims table and its row type.
package model

import (
	"strings"
	"time"
)

// Claim is one row of the claims dataset, one row per claim event.
// BilledAmount, AllowedAmount, PaidAmount and DateOfService are nil when the
// source cell was empty or unparseable; the quality checker counts and filters
// those, downstream metrics only ever see populated values.
type Claim struct {
	ClaimID          string     `json:"claim_id"`
	ProviderID       string     `json:"provider_id"`
	PatientID        string     `json:"patient_id"`
	DateOfService    *time.Time `json:"date_of_service"`
	BilledAmount     *float64   `json:"billed_amount"`
	AllowedAmount    *float64   `json:"allowed_amount"`
	PaidAmount       *float64   `json:"paid_amount"`
	ProcedureCode    string     `json:"procedure_code"`
	DiagnosisCode    string     `json:"diagnosis_code"`
	InsuranceType    string     `json:"insurance_type"`
	ClaimStatus      string     `json:"claim_status"`
	ReasonCode       string     `json:"reason_code"`
	FollowUpRequired string     `json:"follow_up_required"`
	ARStatus         string     `json:"ar_status"`
	Outcome          string     `json:"outcome"`
}

// ServiceMonth returns the claim's service month as "YYYY-MM", or "" when the
// date is missing.
func (c Claim) ServiceMonth() string {
	if c.DateOfService == nil {
		return ""
	}
	return c.DateOfService.Format("2006-01")
}

// Table holds the loaded dataset: the raw records as read from the file plus
// the typed rows parsed from them. Records and Claims are index-aligned.
type Table struct {
	Source  string     // path of the input file
	Header  []string   // original column order
	Records [][]string // raw cells, used for missingness and the data dictionary
	Claims  []Claim
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int { return len(t.Claims) }

// ColumnCount returns the number of columns in the source file.
func (t *Table) ColumnCount() int { return len(t.Header) }

// ColumnIndex returns the index of the first header matching any of the
// candidate names (case-insensitive), or -1.
func (t *Table) ColumnIndex(candidates ...string) int {
	for _, cand := range candidates {
		for i, h := range t.Header {
			if strings.EqualFold(strings.TrimSpace(h), cand) {
				return i
			}
		}
	}
	return -1
}

// Column-name candidates. Source exports are inconsistent about casing and
// spacing, so each role accepts a short list of known spellings.
var (
	ClaimIDColumns    = []string{"Claim ID", "claim_id"}
	ProviderIDColumns = []string{"Provider ID", "provider_id"}
	PatientIDColumns  = []string{"Patient ID", "patient_id", "member_id"}
	DateColumns       = []string{"Date of Service", "date_of_service"}
	BilledColumns     = []string{"Billed Amount", "billed_amount"}
	AllowedColumns    = []string{"Allowed Amount", "allowed_amount"}
	PaidColumns       = []string{"Paid Amount", "paid_amount"}
	ProcedureColumns  = []string{"Procedure Code", "procedure_code", "CPT Code"}
	DiagnosisColumns  = []string{"Diagnosis Code", "ICD-10 Code", "ICD10", "icd10"}
	InsuranceColumns  = []string{"Insurance Type", "insurance_type"}
	StatusColumns     = []string{"Claim Status", "claim_status"}
	ReasonColumns     = []string{"Reason Code", "reason_code"}
	FollowUpColumns   = []string{"Follow-up Required", "follow_up_required"}
	ARStatusColumns   = []string{"AR Status", "ar_status"}
	OutcomeColumns    = []string{"Outcome", "outcome"}
)
