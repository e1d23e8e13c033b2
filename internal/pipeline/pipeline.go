package pipeline

import (
	"context"
	"fmt"
	"time"

	"aem-import-pipeline/internal/config"
	"aem-import-pipeline/internal/model"
	"aem-import-pipeline/internal/source"
	"aem-import-pipeline/internal/store"
)

// Pipeline drives each row through request -> validate -> publish,
// strictly one row at a time. A row's failure at any stage is recorded
// and the run moves on; only a config or source failure aborts the run.
type Pipeline struct {
	Config    *config.Provider
	Source    source.Source
	Client    *Client
	Validator *Validator
	Publisher *Publisher
}

// New wires every stage from configuration. Opening the source reads the
// header, so a bad column mapping or an endpoint placeholder that matches
// no column fails here rather than mid-run.
func New(cfg *config.Provider) (*Pipeline, error) {
	src, err := source.Open(cfg)
	if err != nil {
		return nil, err
	}

	client := NewClient(cfg)
	if err := client.CheckPlaceholders(cfg.GetStringSlice("excel.columns")); err != nil {
		return nil, err
	}

	return &Pipeline{
		Config:    cfg,
		Source:    src,
		Client:    client,
		Validator: NewValidator(RulesFromConfig(cfg)),
		Publisher: NewPublisher(cfg),
	}, nil
}

// Run processes up to limit rows (0 = all, capped further by
// excel.row_limit) and returns the full report. Cancellation is honored
// between rows, never mid-row.
func (p *Pipeline) Run(ctx context.Context, runID string, limit int) (*model.RunReport, error) {
	start := time.Now()
	fmt.Printf("🚀 Starting import run: %s\n", runID)

	store.UpdateRunStatus(runID, "running")

	if configured := p.Config.GetInt("excel.row_limit", 0); configured > 0 && (limit == 0 || configured < limit) {
		limit = configured
	}

	rows, err := p.Source.Rows(limit)
	if err != nil {
		// cannot read the input at all: run-fatal
		store.UpdateRunStatus(runID, "failed")
		store.SaveRunError(runID, err)
		return nil, err
	}

	report := &model.RunReport{RunID: runID, StartedAt: start}

	for i, row := range rows {
		select {
		case <-ctx.Done():
			fmt.Printf("🛑 Run %s stopped after %d of %d rows\n", runID, i, len(rows))
			store.SaveRunError(runID, fmt.Errorf("run stopped: %w", ctx.Err()))
			report.SkippedRows = p.Source.Skipped()
			report.FinishedAt = time.Now()
			store.SaveReport(report, "cancelled")
			return report, nil
		default:
		}

		outcome := p.processRow(ctx, i, row)
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.State == model.StatePublished {
			verb := "updated"
			if outcome.Created {
				verb = "created"
			}
			fmt.Printf("✅ Row %s (%d/%d): page %s %s\n", row.Key, i+1, len(rows), outcome.PagePath, verb)
		} else {
			fmt.Printf("❌ Row %s (%d/%d): %s stage failed - %s\n", row.Key, i+1, len(rows), outcome.Stage, outcome.Reason)
		}
	}

	report.SkippedRows = p.Source.Skipped()
	report.FinishedAt = time.Now()

	status := "completed"
	if report.Summary().Failed > 0 {
		status = "completed_with_errors"
	}
	store.SaveReport(report, status)

	fmt.Printf("🏁 Import run %s finished in %v\n", runID, time.Since(start))
	return report, nil
}

// processRow walks one row through the state machine to a terminal state
func (p *Pipeline) processRow(ctx context.Context, position int, row model.Row) model.RowOutcome {
	outcome := model.RowOutcome{
		RowKey:   row.Key,
		Position: position,
		State:    model.StateFetched,
	}

	resp, err := p.Client.Invoke(ctx, row)
	if err != nil {
		return failed(outcome, model.StageRequest, err)
	}
	outcome.State = model.StateRequested

	record, err := p.Validator.Validate(row.Key, resp)
	if err != nil {
		return failed(outcome, model.StageValidate, err)
	}
	outcome.State = model.StateValidated

	result, err := p.Publisher.Publish(ctx, record)
	if err != nil {
		return failed(outcome, model.StagePublish, err)
	}

	outcome.State = model.StatePublished
	outcome.PagePath = result.Path
	outcome.Created = result.Created
	return outcome
}

func failed(outcome model.RowOutcome, stage model.Stage, err error) model.RowOutcome {
	outcome.State = model.StateFailed
	outcome.Stage = stage
	outcome.Reason = err.Error()
	return outcome
}
