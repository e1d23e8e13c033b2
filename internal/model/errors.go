package model

import "fmt"

// ConfigError is fatal at startup; on reload it degrades to a warning and
// the previous snapshot stays in effect.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// RowSourceError means the tabular input itself could not be read
type RowSourceError struct {
	Path string
	Err  error
}

func (e *RowSourceError) Error() string {
	return fmt.Sprintf("row source %s: %v", e.Path, e.Err)
}

func (e *RowSourceError) Unwrap() error { return e.Err }

// ConnectionError: the endpoint was unreachable. Transient, retried.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError: the configured timeout elapsed. Transient, retried.
type TimeoutError struct {
	URL string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out: %v", e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx reply. 4xx is a permanent rejection of the row,
// 5xx follows the transient retry policy.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Permanent reports whether the status must not be retried
func (e *HTTPError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Problem kinds for field-level validation failures
const (
	ProblemMissing    = "missing"
	ProblemWrongType  = "wrong_type"
	ProblemOutOfRange = "out_of_range"
)

// FieldProblem describes one field-level validation failure
type FieldProblem struct {
	Field  string `json:"field"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

func (p FieldProblem) String() string {
	if p.Detail == "" {
		return fmt.Sprintf("%s: %s", p.Field, p.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", p.Field, p.Kind, p.Detail)
}

// ValidationError carries every field-level problem found in a response,
// never a single opaque message. Not retried.
type ValidationError struct {
	RowKey   string
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for row %s: %d problem(s), first: %s",
		e.RowKey, len(e.Problems), e.Problems[0])
}

// PublishError is a per-row failure at the CMS boundary. Not retried.
type PublishError struct {
	Path       string
	StatusCode int
	Msg        string
}

func (e *PublishError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("publish to %s failed: HTTP %d %s", e.Path, e.StatusCode, e.Msg)
	}
	return fmt.Sprintf("publish to %s failed: %s", e.Path, e.Msg)
}
