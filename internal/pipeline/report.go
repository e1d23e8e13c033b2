package pipeline

import (
	"fmt"

	"aem-import-pipeline/internal/model"
)

// PrintReport writes the run summary and every failure to stdout
func PrintReport(report *model.RunReport) {
	summary := report.Summary()

	fmt.Printf("\n📊 Import Summary for run %s\n", report.RunID)
	fmt.Printf("   Rows processed: %d\n", summary.Total)
	fmt.Printf("   Published:      %d\n", summary.Published)
	fmt.Printf("   Failed:         %d\n", summary.Failed)
	fmt.Printf("   Skipped (no key): %d\n", summary.SkippedRows)

	for _, stage := range []model.Stage{model.StageRequest, model.StageValidate, model.StagePublish} {
		if n := summary.ByStage[stage]; n > 0 {
			fmt.Printf("     %s failures: %d\n", stage, n)
		}
	}

	if failures := report.Failures(); len(failures) > 0 {
		fmt.Println("\n❌ Failed rows:")
		for _, f := range failures {
			fmt.Printf("   row %s [%s]: %s\n", f.RowKey, f.Stage, f.Reason)
		}
	}

	fmt.Printf("\n⌛ Import duration: %v\n", report.FinishedAt.Sub(report.StartedAt))
}
