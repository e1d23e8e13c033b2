package model

import "time"

// Stage identifies the pipeline stage a row failed at
type Stage string

const (
	StageRequest  Stage = "request"
	StageValidate Stage = "validate"
	StagePublish  Stage = "publish"
)

// RowState is the per-row state machine position
type RowState string

const (
	StateFetched   RowState = "fetched"
	StateRequested RowState = "requested"
	StateValidated RowState = "validated"
	StatePublished RowState = "published" // terminal success
	StateFailed    RowState = "failed"    // terminal failure
)

// RowOutcome is the terminal result for one row
type RowOutcome struct {
	RowKey   string   `json:"row_key"`
	Position int      `json:"position"` // 0-based index in source order
	State    RowState `json:"state"`
	Stage    Stage    `json:"stage,omitempty"`  // set when State == failed
	Reason   string   `json:"reason,omitempty"` // set when State == failed
	PagePath string   `json:"page_path,omitempty"`
	Created  bool     `json:"created,omitempty"`
}

// RunSummary holds the per-stage counts for one run
type RunSummary struct {
	Total       int           `json:"total"`
	Published   int           `json:"published"`
	Failed      int           `json:"failed"`
	SkippedRows int           `json:"skipped_rows"`
	ByStage     map[Stage]int `json:"by_stage"` // failures per stage
}

// RunReport is the final artifact of a run: every row, in source order
type RunReport struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Outcomes    []RowOutcome `json:"outcomes"`
	SkippedRows int          `json:"skipped_rows"` // key-less rows dropped by the source
}

// Summary aggregates the per-row outcomes into counts
func (r *RunReport) Summary() RunSummary {
	s := RunSummary{
		Total:       len(r.Outcomes),
		SkippedRows: r.SkippedRows,
		ByStage:     make(map[Stage]int),
	}
	for _, o := range r.Outcomes {
		if o.State == StatePublished {
			s.Published++
		} else {
			s.Failed++
			s.ByStage[o.Stage]++
		}
	}
	return s
}

// Failures returns only the failed outcomes, preserving order
func (r *RunReport) Failures() []RowOutcome {
	var failed []RowOutcome
	for _, o := range r.Outcomes {
		if o.State == StateFailed {
			failed = append(failed, o)
		}
	}
	return failed
}
