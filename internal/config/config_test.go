package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleConfig = `
excel:
  file_path: data/input.xlsx
  columns: [ID, Title]
ms:
  endpoint: https://ms.example.com/articles?id=<ID>
  timeout: 15s
  retries: 4
aem:
  connection:
    timeout: 60
run:
  fail_on_error: true
`

func TestLoadMissingFileIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedFileIsFatal(t *testing.T) {
	path := writeConfig(t, "excel: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
}

func TestGetDottedPaths(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
		def  interface{}
		want interface{}
	}{
		{"one segment", "run", nil, map[string]interface{}{"fail_on_error": true}},
		{"two segments", "excel.file_path", "", "data/input.xlsx"},
		{"three segments", "aem.connection.timeout", 30, 60},
		{"absent leaf", "excel.sheet", "Sheet1", "Sheet1"},
		{"absent section", "cms.endpoint", "none", "none"},
		{"scalar in the middle", "excel.file_path.deeper", "dflt", "dflt"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cfg.Get(tc.key, tc.def))
		})
	}
}

func TestTypedGetters(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://ms.example.com/articles?id=<ID>", cfg.GetString("ms.endpoint", ""))
	assert.Equal(t, 4, cfg.GetInt("ms.retries", 1))
	assert.Equal(t, 1, cfg.GetInt("ms.missing", 1))
	assert.True(t, cfg.GetBool("run.fail_on_error", false))
	assert.Equal(t, 15*time.Second, cfg.GetDuration("ms.timeout", time.Second))
	assert.Equal(t, time.Second, cfg.GetDuration("ms.backoff", time.Second))
	assert.Equal(t, []string{"ID", "Title"}, cfg.GetStringSlice("excel.columns"))
}

func TestSection(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	excel := cfg.Section("excel")
	assert.Equal(t, "data/input.xlsx", excel["file_path"])

	// absent section is an empty map, callers apply their own defaults
	assert.NotNil(t, cfg.Section("cms"))
	assert.Empty(t, cfg.Section("cms"))
}

func TestReloadSwapsSnapshot(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("ms:\n  retries: 9\n"), 0o644))
	require.NoError(t, cfg.Reload())

	assert.Equal(t, 9, cfg.GetInt("ms.retries", 0))
	// whole snapshot replaced, old sections are gone
	assert.Empty(t, cfg.Section("excel"))
}

func TestReloadMalformedKeepsOldSnapshot(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("excel: [broken"), 0o644))
	err = cfg.Reload()
	require.Error(t, err)

	// previous snapshot still in effect
	assert.Equal(t, "data/input.xlsx", cfg.GetString("excel.file_path", ""))
	assert.Equal(t, 4, cfg.GetInt("ms.retries", 0))
}
