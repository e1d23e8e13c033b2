package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"aem-import-pipeline/internal/config"
	"aem-import-pipeline/internal/model"
	"aem-import-pipeline/pkg/utils"
)

// Publisher upserts validated records as CMS pages. The page path is
// deterministic per row key, and an existence probe decides between
// create and update so the same record never produces duplicate pages.
type Publisher struct {
	base     string // CMS base URL, e.g. http://localhost:4502
	rootPath string // content root the pages live under
	username string
	password string
	http     *http.Client
}

// NewPublisher builds a publisher from the aem config section.
// AEM_USERNAME / AEM_PASSWORD in the environment override the file so
// credentials can stay out of config.
func NewPublisher(cfg *config.Provider) *Publisher {
	username := cfg.GetString("aem.username", "admin")
	password := cfg.GetString("aem.password", "admin")
	if env := os.Getenv("AEM_USERNAME"); env != "" {
		username = env
	}
	if env := os.Getenv("AEM_PASSWORD"); env != "" {
		password = env
	}

	return &Publisher{
		base:     cfg.GetString("aem.endpoint", ""),
		rootPath: cfg.GetString("aem.root_path", "/content/imports"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: cfg.GetDuration("aem.timeout", 10*time.Second)},
	}
}

// PagePath computes the deterministic page path for a row key
func (p *Publisher) PagePath(rowKey string) string {
	return path.Join(p.rootPath, utils.Slug(rowKey))
}

// Publish upserts the record: probe the page path, then POST (create) or
// PUT (update). Any non-success reply from the CMS becomes a
// PublishError carrying the attempted path.
func (p *Publisher) Publish(ctx context.Context, rec model.ValidatedRecord) (model.PublishResult, error) {
	start := time.Now()
	pagePath := p.PagePath(rec.RowKey)

	exists, err := p.exists(ctx, pagePath)
	if err != nil {
		return model.PublishResult{}, err
	}

	payload, err := json.Marshal(rec.Articles)
	if err != nil {
		return model.PublishResult{}, &model.PublishError{Path: pagePath, Msg: fmt.Sprintf("encode payload: %v", err)}
	}

	method := http.MethodPost
	if exists {
		method = http.MethodPut
	}

	req, err := http.NewRequestWithContext(ctx, method, p.base+pagePath, bytes.NewReader(payload))
	if err != nil {
		return model.PublishResult{}, &model.PublishError{Path: pagePath, Msg: err.Error()}
	}
	req.SetBasicAuth(p.username, p.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return model.PublishResult{}, &model.PublishError{Path: pagePath, Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return model.PublishResult{}, &model.PublishError{
			Path:       pagePath,
			StatusCode: resp.StatusCode,
			Msg:        snippet(body),
		}
	}

	return model.PublishResult{
		Path:       pagePath,
		Created:    !exists,
		StatusCode: resp.StatusCode,
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

// exists probes the page path. 404 means create, 2xx means update.
func (p *Publisher) exists(ctx context.Context, pagePath string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+pagePath, nil)
	if err != nil {
		return false, &model.PublishError{Path: pagePath, Msg: err.Error()}
	}
	req.SetBasicAuth(p.username, p.password)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return false, &model.PublishError{Path: pagePath, Msg: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return true, nil
	default:
		return false, &model.PublishError{
			Path:       pagePath,
			StatusCode: resp.StatusCode,
			Msg:        "existence probe failed",
		}
	}
}
