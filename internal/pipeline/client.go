package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"aem-import-pipeline/internal/config"
	"aem-import-pipeline/internal/model"
)

var placeholderRe = regexp.MustCompile(`<([^>]+)>`)

// RetryPolicy bounds the transient-failure retries of the client
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	Backoff     time.Duration `json:"backoff"`
}

// Client issues one microservice request per row. Connection errors,
// timeouts and 5xx replies are retried per policy; 4xx is a permanent
// rejection of the row and never retried.
type Client struct {
	endpoint string // URL template with <Column> placeholders
	headers  map[string]string
	retry    RetryPolicy
	http     *http.Client

	sleep func(time.Duration) // swapped out in tests
	now   func() time.Time
}

// NewClient builds a client from the ms config section
func NewClient(cfg *config.Provider) *Client {
	return &Client{
		endpoint: cfg.GetString("ms.endpoint", ""),
		headers:  cfg.GetStringMap("ms.headers"),
		retry: RetryPolicy{
			MaxAttempts: cfg.GetInt("ms.retries", 3),
			Backoff:     cfg.GetDuration("ms.backoff", 1*time.Second),
		},
		http:  &http.Client{Timeout: cfg.GetDuration("ms.timeout", 15*time.Second)},
		sleep: time.Sleep,
		now:   time.Now,
	}
}

// BuildRequest expands every <Column> placeholder in the endpoint template
// from the row's fields. A missing or empty value is a request-stage
// failure for this row. A cache-busting suffix derived from the row key
// keeps intermediaries from serving stale replies.
func (c *Client) BuildRequest(row model.Row) (model.MSRequest, error) {
	url := c.endpoint
	for _, m := range placeholderRe.FindAllStringSubmatch(c.endpoint, -1) {
		value, ok := row.Fields[m[1]]
		text := strings.TrimSpace(fmt.Sprint(value))
		if !ok || text == "" || text == "<nil>" {
			return model.MSRequest{}, fmt.Errorf("missing value for placeholder %q in row %s", m[1], row.Key)
		}
		url = strings.ReplaceAll(url, m[0], text)
	}

	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	buster := c.now().UnixNano()
	if id, err := strconv.ParseInt(strings.TrimSpace(row.Key), 10, 64); err == nil && id > 0 {
		buster *= id
	}
	url = fmt.Sprintf("%s%s_=%d", url, sep, buster)

	return model.MSRequest{URL: url, Headers: c.headers}, nil
}

// CheckPlaceholders verifies every <Placeholder> in the endpoint template
// names a declared source column, so a typo in the template fails at
// startup instead of failing every row.
func (c *Client) CheckPlaceholders(columns []string) error {
	declared := make(map[string]bool, len(columns))
	for _, col := range columns {
		declared[col] = true
	}
	for _, m := range placeholderRe.FindAllStringSubmatch(c.endpoint, -1) {
		if !declared[m[1]] {
			return &model.ConfigError{
				Path: "ms.endpoint",
				Err:  fmt.Errorf("placeholder <%s> does not match any declared column", m[1]),
			}
		}
	}
	return nil
}

// Invoke sends the row's request and returns the microservice reply, with
// the decoded JSON body and the number of attempts it took.
func (c *Client) Invoke(ctx context.Context, row model.Row) (model.MSResponse, error) {
	req, err := c.BuildRequest(row)
	if err != nil {
		return model.MSResponse{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		resp, err := c.do(ctx, req)
		if err == nil {
			resp.Attempts = attempt
			return resp, nil
		}
		lastErr = err

		var httpErr *model.HTTPError
		if errors.As(err, &httpErr) && httpErr.Permanent() {
			// 4xx will not fix itself
			return model.MSResponse{Attempts: attempt}, err
		}
		if ctx.Err() != nil {
			return model.MSResponse{Attempts: attempt}, lastErr
		}
		if attempt < c.retry.MaxAttempts {
			fmt.Printf("🔄 attempt %d/%d for row %s failed: %v. Retrying...\n",
				attempt, c.retry.MaxAttempts, row.Key, err)
			c.sleep(c.retry.Backoff)
		}
	}

	return model.MSResponse{Attempts: c.retry.MaxAttempts}, lastErr
}

func (c *Client) do(ctx context.Context, req model.MSRequest) (model.MSResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return model.MSResponse{}, &model.ConnectionError{URL: req.URL, Err: err}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return model.MSResponse{}, &model.TimeoutError{URL: req.URL, Err: err}
		}
		return model.MSResponse{}, &model.ConnectionError{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.MSResponse{}, &model.ConnectionError{URL: req.URL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.MSResponse{}, &model.HTTPError{
			URL:        req.URL,
			StatusCode: resp.StatusCode,
			Body:       snippet(body),
		}
	}

	out := model.MSResponse{StatusCode: resp.StatusCode, Body: body}
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err == nil {
		out.Result = decoded
	}
	return out, nil
}

// snippet trims a body for error messages
func snippet(body []byte) string {
	const max = 500
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
