package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"aem-import-pipeline/internal/config"
	"aem-import-pipeline/internal/pipeline"
	"aem-import-pipeline/internal/store"

	"github.com/google/uuid"
)

// ImportHandler serves the import-run API on top of a shared config provider
type ImportHandler struct {
	Cfg *config.Provider
}

func NewImportHandler(cfg *config.Provider) *ImportHandler {
	return &ImportHandler{Cfg: cfg}
}

type startImportRequest struct {
	Limit int `json:"limit"` // optional row cap, 0 = all
}

// StartImport starts a new import run
// @Summary Start an import run
// @Description Start a new Excel-to-CMS import run with the current configuration
// @Tags imports
// @Accept json
// @Produce json
// @Param request body startImportRequest false "Run options"
// @Success 200 {object} map[string]interface{} "Run started"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Pipeline could not be built"
// @Router /imports [post]
func (h *ImportHandler) StartImport(w http.ResponseWriter, r *http.Request) {
	var req startImportRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
			return
		}
	}

	// Build the pipeline up front so a bad column mapping or input path
	// fails the request instead of a background run
	p, err := pipeline.New(h.Cfg)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to build pipeline: %v", err), http.StatusInternalServerError)
		return
	}

	runID := uuid.New().String()
	if err := store.SaveRun(runID); err != nil {
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	timeout := h.Cfg.GetDuration("run.timeout", 30*time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	go func() {
		defer cancel()
		if _, err := p.Run(ctx, runID, req.Limit); err != nil {
			store.SaveRunError(runID, err)
		}
	}()

	resp := map[string]interface{}{
		"message":   "Import run started",
		"runID":     runID,
		"status":    "pending",
		"createdAt": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListImports lists all import runs
// @Summary List import runs
// @Description Get all import runs with status and totals
// @Tags imports
// @Produce json
// @Success 200 {array} map[string]interface{} "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /imports [get]
func (h *ImportHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// GetImport fetches one run's status and totals
// @Summary Get import run
// @Description Retrieve status and totals of one import run
// @Tags imports
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run details"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /imports/{id} [get]
func (h *ImportHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(r.URL.Path, "")
	if !ok {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	run, err := store.GetRun(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// GetImportReport fetches the per-row outcomes of a run
// @Summary Get import report
// @Description Retrieve the ordered per-row outcomes of one import run
// @Tags imports
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Per-row outcomes"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /imports/{id}/report [get]
func (h *ImportHandler) GetImportReport(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(r.URL.Path, "/report")
	if !ok {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	outcomes, err := store.GetOutcomes(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":   runID,
		"outcomes": outcomes,
		"count":    len(outcomes),
	})
}

// GetImportErrors fetches run-level errors
// @Summary Get import run errors
// @Description Retrieve run-level errors of one import run
// @Tags imports
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run errors"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /imports/{id}/errors [get]
func (h *ImportHandler) GetImportErrors(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(r.URL.Path, "/errors")
	if !ok {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	errs, err := store.GetRunErrors(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": runID,
		"errors": errs,
		"count":  len(errs),
	})
}

// ReloadConfig triggers an explicit configuration reload
// @Summary Reload configuration
// @Description Re-read the configuration file; on error the previous snapshot stays in effect
// @Tags config
// @Produce json
// @Success 200 {object} map[string]interface{} "Configuration reloaded"
// @Failure 500 {object} map[string]interface{} "Reload failed, previous config kept"
// @Router /config/reload [post]
func (h *ImportHandler) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := h.Cfg.Reload(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Reload failed, previous configuration kept",
			"error":   err.Error(),
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Configuration reloaded",
		"path":    h.Cfg.Path(),
	})
}

// runIDFromPath extracts the run ID between the imports prefix and suffix
func runIDFromPath(path, suffix string) (string, bool) {
	const prefix = "/api/v1/imports/"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	runID := path[len(prefix) : len(path)-len(suffix)]
	return runID, runID != ""
}
