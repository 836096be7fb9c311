// Package store persists the run ledger: one row per pipeline run plus its
// stage outcomes. SQLite is the default backend; Postgres is available for
// shared environments.
package store

import (
	"context"
	"time"
)

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID        string      `json:"id"`
	Input     string      `json:"input"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the headline outcome of a completed run.
type RunSummary struct {
	RawRows      int     `json:"raw_rows"`
	CleanRows    int     `json:"clean_rows"`
	DroppedRows  int     `json:"dropped_rows"`
	TotalBilled  float64 `json:"total_billed"`
	AnomalyCount int     `json:"anomaly_count"`
	OutputDir    string  `json:"output_dir"`
}

// StageRecord is one stage outcome within a run.
type StageRecord struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "complete" or "failed"
	Detail    string    `json:"detail,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// Store defines the run-ledger persistence interface.
type Store interface {
	CreateRun(ctx context.Context, input string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, summary *RunSummary) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	RecordStage(ctx context.Context, runID, name, status, detail string) error
	ListStages(ctx context.Context, runID string) ([]StageRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}
