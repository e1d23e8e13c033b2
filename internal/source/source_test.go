package source

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"aem-import-pipeline/internal/config"
	"aem-import-pipeline/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func providerFor(t *testing.T, filePath string) *config.Provider {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
excel:
  file_path: %s
  columns: [ID, Title, Locale]
  key_column: ID
`, filePath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	return cfg
}

func TestCSVRows(t *testing.T) {
	path := writeTempCSV(t, "ID,Title,Locale,Extra\n1,First,en,x\n2,Second,de,y\n3,Third,fr,z\n")
	src, err := Open(providerFor(t, path))
	require.NoError(t, err)

	rows, err := src.Rows(0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "1", rows[0].Key)
	assert.Equal(t, "First", rows[0].Fields["Title"])
	assert.Equal(t, 1, rows[0].Fields["ID"]) // numeric cells are coerced
	// undeclared columns are not carried along
	assert.NotContains(t, rows[0].Fields, "Extra")
	assert.Zero(t, src.Skipped())
}

func TestCSVSkipsRowsWithoutKey(t *testing.T) {
	path := writeTempCSV(t, "ID,Title,Locale\n1,First,en\n,NoKey,en\n2,Second,de\n  ,Blank,de\n")
	src, err := Open(providerFor(t, path))
	require.NoError(t, err)

	rows, err := src.Rows(0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].Key)
	assert.Equal(t, "2", rows[1].Key)
	assert.Equal(t, 2, src.Skipped())
}

func TestCSVSkipsDuplicateKeys(t *testing.T) {
	path := writeTempCSV(t, "ID,Title,Locale\n1,First,en\n1,Again,en\n2,Second,de\n")
	src, err := Open(providerFor(t, path))
	require.NoError(t, err)

	rows, err := src.Rows(0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, src.Skipped())
}

func TestCSVLimitIsAPrefix(t *testing.T) {
	path := writeTempCSV(t, "ID,Title,Locale\n1,First,en\n2,Second,de\n3,Third,fr\n")
	src, err := Open(providerFor(t, path))
	require.NoError(t, err)

	rows, err := src.Rows(2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].Key)
	assert.Equal(t, "2", rows[1].Key)
}

func TestCSVRowsIsRestartable(t *testing.T) {
	path := writeTempCSV(t, "ID,Title,Locale\n1,First,en\n2,Second,de\n")
	src, err := Open(providerFor(t, path))
	require.NoError(t, err)

	first, err := src.Rows(0)
	require.NoError(t, err)
	second, err := src.Rows(0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestOpenFailsOnMissingColumns(t *testing.T) {
	path := writeTempCSV(t, "ID,Name\n1,First\n")
	_, err := Open(providerFor(t, path))
	require.Error(t, err)

	var srcErr *model.RowSourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Contains(t, srcErr.Error(), "Title")
	assert.Contains(t, srcErr.Error(), "Locale")
}

func TestOpenFailsOnBadKeyColumn(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
excel:
  file_path: whatever.csv
  columns: [ID, Title]
  key_column: Missing
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	_, err = Open(cfg)
	var cfgErr *model.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestOpenRejectsUnknownExtension(t *testing.T) {
	_, err := Open(providerFor(t, "input.txt"))
	require.Error(t, err)
}

func writeTempXLSX(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, name, cell))
		}
	}
	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExcelRows(t *testing.T) {
	path := writeTempXLSX(t, [][]interface{}{
		{"ID", "Title", "Locale"},
		{1, "First", "en"},
		{"", "NoKey", "en"},
		{2, "Second", "de"},
	})
	src, err := Open(providerFor(t, path))
	require.NoError(t, err)

	rows, err := src.Rows(0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].Key)
	assert.Equal(t, "Second", rows[1].Fields["Title"])
	assert.Equal(t, 1, src.Skipped())
}

func TestExcelMissingColumnFailsAtOpen(t *testing.T) {
	path := writeTempXLSX(t, [][]interface{}{
		{"ID", "Name"},
		{1, "First"},
	})
	_, err := Open(providerFor(t, path))
	require.Error(t, err)
}
