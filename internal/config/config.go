package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"aem-import-pipeline/internal/model"
	"aem-import-pipeline/pkg/utils"

	"gopkg.in/yaml.v3"
)

// Provider holds the current configuration snapshot. It is built once at
// startup and handed to every component; Reload swaps the snapshot
// atomically so readers see either the old or the new config in full.
type Provider struct {
	path string

	mu       sync.RWMutex
	snapshot map[string]interface{}
}

// Load reads the YAML file at path. A missing or malformed file here is
// fatal to the caller: nothing can run without configuration.
func Load(path string) (*Provider, error) {
	p := &Provider{path: path}
	snapshot, err := read(path)
	if err != nil {
		return nil, &model.ConfigError{Path: path, Err: err}
	}
	p.snapshot = snapshot
	return p, nil
}

// Reload re-reads the source and swaps the snapshot. On any error the
// previous snapshot stays in effect and the error is returned for the
// caller to log.
func (p *Provider) Reload() error {
	snapshot, err := read(p.path)
	if err != nil {
		return &model.ConfigError{Path: p.path, Err: err}
	}

	p.mu.Lock()
	p.snapshot = snapshot
	p.mu.Unlock()
	return nil
}

func read(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	snapshot := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return snapshot, nil
}

// Path returns the location the provider loads from
func (p *Provider) Path() string { return p.path }

// Get resolves a dotted key path ("aem.connection.timeout") against the
// current snapshot, returning def when any segment is absent.
func (p *Provider) Get(key string, def interface{}) interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var current interface{} = p.snapshot
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return def
		}
		current, ok = m[part]
		if !ok {
			return def
		}
	}
	if current == nil {
		return def
	}
	return current
}

// Section returns the sub-mapping for a named top-level section, or an
// empty map when absent. Callers apply their own defaults for keys.
func (p *Provider) Section(name string) map[string]interface{} {
	if m, ok := p.Get(name, nil).(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// GetString returns a string value at key or def
func (p *Provider) GetString(key, def string) string {
	switch v := p.Get(key, nil).(type) {
	case string:
		return v
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

// GetInt returns an int value at key or def
func (p *Provider) GetInt(key string, def int) int {
	switch v := p.Get(key, nil).(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// GetBool returns a bool value at key or def
func (p *Provider) GetBool(key string, def bool) bool {
	if v, ok := p.Get(key, nil).(bool); ok {
		return v
	}
	return def
}

// GetDuration parses a duration string ("15s") at key, or def
func (p *Provider) GetDuration(key string, def time.Duration) time.Duration {
	return utils.ParseDuration(p.GetString(key, ""), def)
}

// GetStringSlice returns a list of strings at key, or nil
func (p *Provider) GetStringSlice(key string) []string {
	list, ok := p.Get(key, nil).([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

// GetStringMap returns a string-to-string mapping at key, or nil
func (p *Provider) GetStringMap(key string) map[string]string {
	m, ok := p.Get(key, nil).(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}
