package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"aem-import-pipeline/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCMS stores pages by path and records the methods used
type fakeCMS struct {
	mu      sync.Mutex
	pages   map[string][]byte
	methods []string
}

func newFakeCMS() *fakeCMS {
	return &fakeCMS{pages: make(map[string][]byte)}
}

func (f *fakeCMS) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			if _, ok := f.pages[r.URL.Path]; !ok {
				http.NotFound(w, r)
				return
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodPost, http.MethodPut:
			f.methods = append(f.methods, r.Method)
			body, _ := io.ReadAll(r.Body)
			f.pages[r.URL.Path] = body
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
		default:
			http.Error(w, "nope", http.StatusMethodNotAllowed)
		}
	}
}

func testPublisher(t *testing.T, base string) *Publisher {
	t.Helper()
	return NewPublisher(testProvider(t, fmt.Sprintf(`
aem:
  endpoint: %s
  root_path: /content/imports
  timeout: 2s
`, base)))
}

func testRecord(key string) model.ValidatedRecord {
	return model.ValidatedRecord{
		RowKey:   key,
		Articles: []map[string]interface{}{{"title": "Hello", "status": "published"}},
	}
}

func TestPagePathIsDeterministic(t *testing.T) {
	p := testPublisher(t, "http://cms.local")
	assert.Equal(t, "/content/imports/abc-123", p.PagePath("ABC 123"))
	assert.Equal(t, p.PagePath("ABC 123"), p.PagePath("ABC 123"))
}

func TestPublishCreatesThenUpdates(t *testing.T) {
	cms := newFakeCMS()
	srv := httptest.NewServer(cms.handler())
	defer srv.Close()

	p := testPublisher(t, srv.URL)
	rec := testRecord("42")

	first, err := p.Publish(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "/content/imports/42", first.Path)

	second, err := p.Publish(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, second.Created) // update, not duplicate
	assert.Equal(t, first.Path, second.Path)

	// one page, created once then updated in place
	assert.Len(t, cms.pages, 1)
	assert.Equal(t, []string{http.MethodPost, http.MethodPut}, cms.methods)

	var payload []map[string]interface{}
	require.NoError(t, json.Unmarshal(cms.pages[first.Path], &payload))
	require.Len(t, payload, 1)
	assert.Equal(t, "Hello", payload[0]["title"])
}

func TestPublishSendsBasicAuth(t *testing.T) {
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		if r.Method == http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := NewPublisher(testProvider(t, fmt.Sprintf(`
aem:
  endpoint: %s
  username: importer
  password: s3cret
`, srv.URL)))

	_, err := p.Publish(context.Background(), testRecord("1"))
	require.NoError(t, err)
	assert.Equal(t, "importer", user)
	assert.Equal(t, "s3cret", pass)
}

func TestPublishErrorCarriesPathAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "storage full", http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	p := testPublisher(t, srv.URL)
	_, err := p.Publish(context.Background(), testRecord("1"))
	require.Error(t, err)

	var pubErr *model.PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, "/content/imports/1", pubErr.Path)
	assert.Equal(t, http.StatusInsufficientStorage, pubErr.StatusCode)
}

func TestPublishUnreachableCMS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := testPublisher(t, srv.URL)
	_, err := p.Publish(context.Background(), testRecord("1"))

	var pubErr *model.PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Zero(t, pubErr.StatusCode)
}
