package model

// Row is a single record extracted from the tabular input
type Row struct {
	Key    string                 `json:"key"`    // value of the configured key column
	Fields map[string]interface{} `json:"fields"` // column name -> parsed cell value
}

// MSRequest is the fully built request for one row
type MSRequest struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// MSResponse wraps the microservice reply for one row.
// StatusCode is the HTTP status, Result the decoded JSON body (nil when the
// body was not valid JSON). Attempts counts how many tries it took.
type MSResponse struct {
	StatusCode int         `json:"statusCode"`
	Body       []byte      `json:"-"`
	Result     interface{} `json:"result"`
	Attempts   int         `json:"attempts"`
}

// ValidatedRecord only exists after successful validation. Articles holds
// the normalized items from the microservice result array.
type ValidatedRecord struct {
	RowKey   string                   `json:"row_key"`
	Articles []map[string]interface{} `json:"articles"`
}

// PublishResult is the outcome of one upsert against the CMS
type PublishResult struct {
	Path       string `json:"path"`
	Created    bool   `json:"created"` // false means an existing page was updated
	StatusCode int    `json:"status_code"`
	DurationMS int64  `json:"duration_ms"`
}
