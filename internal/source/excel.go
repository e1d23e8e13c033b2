package source

import (
	"fmt"

	"aem-import-pipeline/internal/model"

	"github.com/xuri/excelize/v2"
)

// ExcelSource reads rows from the first sheet of an .xlsx workbook
type ExcelSource struct {
	path    string
	mapping Mapping
	skipped int
}

func (s *ExcelSource) Skipped() int { return s.skipped }

func (s *ExcelSource) Rows(limit int) ([]model.Row, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, &model.RowSourceError{Path: s.path, Err: err}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &model.RowSourceError{Path: s.path, Err: fmt.Errorf("workbook has no sheets")}
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, &model.RowSourceError{Path: s.path, Err: err}
	}
	if len(all) == 0 {
		return nil, &model.RowSourceError{Path: s.path, Err: fmt.Errorf("sheet %q is empty", sheet)}
	}

	index, err := checkHeader(s.path, all[0], s.mapping)
	if err != nil {
		return nil, err
	}

	s.skipped = 0
	seen := make(map[string]bool)
	var rows []model.Row
	for _, record := range all[1:] {
		if limit > 0 && len(rows) >= limit {
			break
		}
		row, ok := buildRow(record, index, s.mapping)
		if !ok || seen[row.Key] {
			s.skipped++
			continue
		}
		seen[row.Key] = true
		rows = append(rows, row)
	}
	return rows, nil
}
