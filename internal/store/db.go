package store

import (
	"database/sql"
	"time"

	"aem-import-pipeline/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// InitDB opens the run-history database and creates tables as needed.
// Until InitDB is called, every store function is a no-op so a plain CLI
// run works without history.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT,
		total INTEGER DEFAULT 0,
		published INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	outcomeTable := `
	CREATE TABLE IF NOT EXISTS row_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		position INTEGER,
		row_key TEXT,
		state TEXT,
		stage TEXT,
		reason TEXT,
		page_path TEXT,
		created_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{runTable, outcomeTable, errorTable} {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun registers a new run
func SaveRun(runID string) error {
	if db == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		runID, "pending", now, now)
	return err
}

// UpdateRunStatus updates a run's status
func UpdateRunStatus(runID string, status string) error {
	if db == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveRunError records a run-level error
func SaveRunError(runID string, err error) error {
	if db == nil || err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return e
}

// SaveReport persists the per-row outcomes and run totals in one shot
func SaveReport(report *model.RunReport, status string) error {
	if db == nil {
		return nil
	}

	now := time.Now().UTC()
	summary := report.Summary()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// SaveRun may not have been called for CLI runs
	if _, err := tx.Exec(`INSERT OR IGNORE INTO runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		report.RunID, status, now, now); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`UPDATE runs SET status = ?, total = ?, published = ?, failed = ?, skipped = ?, updated_at = ? WHERE id = ?`,
		status, summary.Total, summary.Published, summary.Failed, summary.SkippedRows, now, report.RunID,
	); err != nil {
		return err
	}

	for _, o := range report.Outcomes {
		if _, err := tx.Exec(
			`INSERT INTO row_outcomes (run_id, position, row_key, state, stage, reason, page_path, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, o.Position, o.RowKey, string(o.State), string(o.Stage), o.Reason, o.PagePath, now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns all runs, newest first
func ListRuns() ([]map[string]interface{}, error) {
	if db == nil {
		return nil, nil
	}
	rows, err := db.Query(`SELECT id, status, total, published, failed, skipped, created_at, updated_at
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var total, published, failed, skipped int
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &total, &published, &failed, &skipped, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"total":     total,
			"published": published,
			"failed":    failed,
			"skipped":   skipped,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return runs, rows.Err()
}

// GetRun fetches one run's status and totals
func GetRun(runID string) (map[string]interface{}, error) {
	if db == nil {
		return nil, sql.ErrNoRows
	}
	var status string
	var total, published, failed, skipped int
	var createdAt, updatedAt time.Time

	err := db.QueryRow(`SELECT status, total, published, failed, skipped, created_at, updated_at
		FROM runs WHERE id = ?`, runID).
		Scan(&status, &total, &published, &failed, &skipped, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":        runID,
		"status":    status,
		"total":     total,
		"published": published,
		"failed":    failed,
		"skipped":   skipped,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
	}, nil
}

// GetOutcomes returns a run's per-row outcomes in source order
func GetOutcomes(runID string) ([]model.RowOutcome, error) {
	if db == nil {
		return nil, nil
	}
	rows, err := db.Query(`SELECT position, row_key, state, stage, reason, page_path
		FROM row_outcomes WHERE run_id = ? ORDER BY position ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []model.RowOutcome
	for rows.Next() {
		var o model.RowOutcome
		var state, stage string
		if err := rows.Scan(&o.Position, &o.RowKey, &state, &stage, &o.Reason, &o.PagePath); err != nil {
			return nil, err
		}
		o.State = model.RowState(state)
		o.Stage = model.Stage(stage)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// GetRunErrors returns run-level errors, oldest first
func GetRunErrors(runID string) ([]string, error) {
	if db == nil {
		return nil, nil
	}
	rows, err := db.Query(`SELECT error_message FROM run_errors WHERE run_id = ? ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
