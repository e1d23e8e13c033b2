package store

import (
	"path/filepath"
	"testing"
	"time"

	"aem-import-pipeline/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "imports.db")))
	t.Cleanup(func() {
		db.Close()
		db = nil
	})
}

func sampleReport(runID string) *model.RunReport {
	now := time.Now().UTC()
	return &model.RunReport{
		RunID:       runID,
		StartedAt:   now.Add(-time.Minute),
		FinishedAt:  now,
		SkippedRows: 1,
		Outcomes: []model.RowOutcome{
			{RowKey: "1", Position: 0, State: model.StatePublished, PagePath: "/content/imports/1", Created: true},
			{RowKey: "2", Position: 1, State: model.StateFailed, Stage: model.StageValidate, Reason: "status: missing"},
			{RowKey: "3", Position: 2, State: model.StateFailed, Stage: model.StagePublish, Reason: "HTTP 502"},
		},
	}
}

func TestNoopWithoutInit(t *testing.T) {
	// store calls are no-ops until InitDB so plain CLI runs need no db
	assert.NoError(t, SaveRun("x"))
	assert.NoError(t, UpdateRunStatus("x", "running"))
	assert.NoError(t, SaveReport(sampleReport("x"), "completed"))
}

func TestSaveAndGetRun(t *testing.T) {
	initTestDB(t)

	require.NoError(t, SaveRun("run-1"))
	require.NoError(t, UpdateRunStatus("run-1", "running"))

	run, err := GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "running", run["status"])
}

func TestSaveReportPersistsTotalsAndOutcomes(t *testing.T) {
	initTestDB(t)

	require.NoError(t, SaveRun("run-1"))
	require.NoError(t, SaveReport(sampleReport("run-1"), "completed_with_errors"))

	run, err := GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "completed_with_errors", run["status"])
	assert.Equal(t, 3, run["total"])
	assert.Equal(t, 1, run["published"])
	assert.Equal(t, 2, run["failed"])
	assert.Equal(t, 1, run["skipped"])

	outcomes, err := GetOutcomes("run-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	// source order preserved
	assert.Equal(t, "1", outcomes[0].RowKey)
	assert.Equal(t, model.StatePublished, outcomes[0].State)
	assert.Equal(t, "2", outcomes[1].RowKey)
	assert.Equal(t, model.StageValidate, outcomes[1].Stage)
	assert.Equal(t, "3", outcomes[2].RowKey)
}

func TestSaveReportWithoutSaveRun(t *testing.T) {
	initTestDB(t)

	// CLI runs never call SaveRun first
	require.NoError(t, SaveReport(sampleReport("run-cli"), "completed"))

	run, err := GetRun("run-cli")
	require.NoError(t, err)
	assert.Equal(t, "completed", run["status"])
}

func TestRunErrors(t *testing.T) {
	initTestDB(t)

	require.NoError(t, SaveRun("run-1"))
	require.NoError(t, SaveRunError("run-1", assert.AnError))

	errs, err := GetRunErrors("run-1")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, assert.AnError.Error(), errs[0])
}

func TestListRunsNewestFirst(t *testing.T) {
	initTestDB(t)

	require.NoError(t, SaveRun("old"))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, SaveRun("new"))

	runs, err := ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0]["id"])
	assert.Equal(t, "old", runs[1]["id"])
}
