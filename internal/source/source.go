package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"aem-import-pipeline/internal/config"
	"aem-import-pipeline/internal/model"
	"aem-import-pipeline/pkg/utils"
)

// Source yields rows from the tabular input. Rows re-reads the input on
// every call (the sequence is restartable); limit > 0 keeps only the
// first limit rows. Skipped reports how many rows of the last Rows call
// were dropped for having an empty key.
type Source interface {
	Rows(limit int) ([]model.Row, error)
	Skipped() int
}

// Mapping declares which columns to read and which one identifies a row
type Mapping struct {
	Columns   []string
	KeyColumn string
}

// MappingFromConfig reads the excel section. An undeclared column list or
// a key column outside it is a startup-time configuration error, not a
// runtime surprise.
func MappingFromConfig(cfg *config.Provider) (Mapping, error) {
	m := Mapping{
		Columns:   cfg.GetStringSlice("excel.columns"),
		KeyColumn: cfg.GetString("excel.key_column", "ID"),
	}
	if len(m.Columns) == 0 {
		return m, &model.ConfigError{Path: cfg.Path(), Err: fmt.Errorf("excel.columns is empty")}
	}
	for _, col := range m.Columns {
		if col == m.KeyColumn {
			return m, nil
		}
	}
	return m, &model.ConfigError{
		Path: cfg.Path(),
		Err:  fmt.Errorf("excel.key_column %q is not in excel.columns", m.KeyColumn),
	}
}

// Open builds a Source for the configured input file, picking the reader
// by extension. The header is read once up front so that a column missing
// from the file fails at startup.
func Open(cfg *config.Provider) (Source, error) {
	mapping, err := MappingFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	path := cfg.GetString("excel.file_path", "")
	if path == "" {
		return nil, &model.ConfigError{Path: cfg.Path(), Err: fmt.Errorf("excel.file_path is not set")}
	}

	var src Source
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		src = &ExcelSource{path: path, mapping: mapping}
	case ".csv":
		src = &CSVSource{path: path, mapping: mapping}
	default:
		return nil, &model.RowSourceError{Path: path, Err: fmt.Errorf("unsupported input format %q", filepath.Ext(path))}
	}

	// header probe: missing declared columns surface before the run starts
	if _, err := src.Rows(1); err != nil {
		return nil, err
	}
	return src, nil
}

// checkHeader verifies every declared column is present in the file header
// and returns a column -> index lookup.
func checkHeader(path string, header []string, mapping Mapping) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		clean := strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
		index[clean] = i
	}

	var missing []string
	for _, col := range mapping.Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &model.RowSourceError{
			Path: path,
			Err:  fmt.Errorf("missing columns in input file: %s", strings.Join(missing, ", ")),
		}
	}
	return index, nil
}

// buildRow maps one raw record onto the declared columns. ok is false when
// the key cell is missing or empty.
func buildRow(raw []string, index map[string]int, mapping Mapping) (model.Row, bool) {
	fields := make(map[string]interface{}, len(mapping.Columns))
	for _, col := range mapping.Columns {
		i := index[col]
		if i < len(raw) {
			fields[col] = utils.ParseValue(raw[i])
		}
	}

	key := strings.TrimSpace(fmt.Sprint(fields[mapping.KeyColumn]))
	if key == "" || key == "<nil>" {
		return model.Row{}, false
	}
	return model.Row{Key: key, Fields: fields}, true
}

// ------------------- CSV -------------------

// CSVSource reads rows from a CSV file
type CSVSource struct {
	path    string
	mapping Mapping
	skipped int
}

func (s *CSVSource) Skipped() int { return s.skipped }

func (s *CSVSource) Rows(limit int) ([]model.Row, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, &model.RowSourceError{Path: s.path, Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, &model.RowSourceError{Path: s.path, Err: fmt.Errorf("failed to read CSV header: %w", err)}
	}
	index, err := checkHeader(s.path, header, s.mapping)
	if err != nil {
		return nil, err
	}

	s.skipped = 0
	seen := make(map[string]bool)
	var rows []model.Row
	for {
		if limit > 0 && len(rows) >= limit {
			break
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &model.RowSourceError{Path: s.path, Err: fmt.Errorf("CSV read error: %w", err)}
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
