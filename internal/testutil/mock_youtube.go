// Package testutil provides testing utilities for the YouTube channel scraper.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// MockAPIKey is the key MockYouTube accepts by default.
const MockAPIKey = "test-api-key"

// MockError is an error response served by MockYouTube.
type MockError struct {
	StatusCode int
	Reason     string
	Message    string
}

// MockYouTube is a configurable in-process YouTube Data API v3 server
// covering channels.list and search.list.
type MockYouTube struct {
	server *httptest.Server

	mu            sync.RWMutex
	apiKey        string
	channels      map[string]map[string]any
	searchItems   []map[string]any
	searchErrors  map[int]MockError // keyed by 1-based page number
	channelsError *MockError
	requests      map[string][]url.Values
}

// NewMockYouTube creates and starts a new mock server.
func NewMockYouTube() *MockYouTube {
	mock := &MockYouTube{
		apiKey:       MockAPIKey,
		channels:     make(map[string]map[string]any),
		searchErrors: make(map[int]MockError),
		requests:     make(map[string][]url.Values),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/channels", mock.handleChannels)
	mux.HandleFunc("/search", mock.handleSearch)

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests[r.URL.Path] = append(mock.requests[r.URL.Path], r.URL.Query())
		key := mock.apiKey
		mock.mu.Unlock()

		if r.URL.Query().Get("key") != key {
			writeError(w, MockError{StatusCode: http.StatusBadRequest, Reason: "keyInvalid", Message: "API key not valid. Please pass a valid API key."})
			return
		}
		mux.ServeHTTP(w, r)
	}))

	return mock
}

// URL returns the mock server URL, usable as the client base URL.
func (m *MockYouTube) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockYouTube) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockYouTube) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string][]url.Values)
}

// SetAPIKey changes the accepted API key.
func (m *MockYouTube) SetAPIKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKey = key
}

// SetChannel registers a channel resource. Parts are top-level keys of item.
func (m *MockYouTube) SetChannel(id string, item map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[id] = item
}

// SetChannelsError makes every channels.list request fail with e.
func (m *MockYouTube) SetChannelsError(e MockError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channelsError = &e
}

// SetSearchResults sets the full result set search.list pages through.
func (m *MockYouTube) SetSearchResults(items []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchItems = items
}

// SetSearchError makes the given 1-based page of search.list fail with e.
func (m *MockYouTube) SetSearchError(page int, e MockError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchErrors[page] = e
}

// Requests returns the query parameters of every request made to path.
func (m *MockYouTube) Requests(path string) []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]url.Values(nil), m.requests[path]...)
}

// GetRequestCount returns the number of requests made to path.
func (m *MockYouTube) GetRequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests[path])
}

func (m *MockYouTube) handleChannels(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.channelsError != nil {
		writeError(w, *m.channelsError)
		return
	}

	q := r.URL.Query()
	if q.Get("part") == "" {
		writeError(w, MockError{StatusCode: http.StatusBadRequest, Reason: "missingRequiredParameter", Message: "No filter selected. Expected one of: id, forUsername, mine"})
		return
	}

	items := []map[string]any{}
	for _, id := range strings.Split(q.Get("id"), ",") {
		ch, ok := m.channels[id]
		if !ok {
			continue
		}
		item := map[string]any{"kind": "youtube#channel", "etag": "etag-" + id, "id": id}
		for _, part := range strings.Split(q.Get("part"), ",") {
			if v, ok := ch[part]; ok {
				item[part] = v
			}
		}
		items = append(items, item)
	}

	writeJSON(w, map[string]any{
		"kind":     "youtube#channelListResponse",
		"etag":     "list-etag",
		"pageInfo": map[string]any{"totalResults": len(items), "resultsPerPage": len(items)},
		"items":    items,
	})
}

func (m *MockYouTube) handleSearch(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := r.URL.Query()
	offset := 0
	if tok := q.Get("pageToken"); tok != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(tok, "page-"))
		if err != nil || n < 0 {
			writeError(w, MockError{StatusCode: http.StatusBadRequest, Reason: "invalidPageToken", Message: "The request specifies an invalid page token."})
			return
		}
		offset = n
	}

	pageSize := 5
	if v := q.Get("maxResults"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 50 {
			writeError(w, MockError{StatusCode: http.StatusBadRequest, Reason: "invalidValue", Message: fmt.Sprintf("Invalid value '%s'. Values must be within the range: [0, 50]", v)})
			return
		}
		pageSize = n
	}

	page := 1
	if pageSize > 0 {
		page = offset/pageSize + 1
	}
	if e, ok := m.searchErrors[page]; ok {
		writeError(w, e)
		return
	}

	end := offset + pageSize
	if end > len(m.searchItems) {
		end = len(m.searchItems)
	}
	items := []map[string]any{}
	if offset < end {
		items = m.searchItems[offset:end]
	}

	resp := map[string]any{
		"kind":       "youtube#searchListResponse",
		"etag":       "search-etag",
		"regionCode": "US",
		"pageInfo":   map[string]any{"totalResults": len(m.searchItems), "resultsPerPage": pageSize},
		"items":      items,
	}
	if end < len(m.searchItems) && pageSize > 0 {
		resp["nextPageToken"] = fmt.Sprintf("page-%d", end)
	}
	writeJSON(w, resp)
}

// NewSearchItem builds a channel search result with the given channel ID and title.
func NewSearchItem(channelID, title string) map[string]any {
	return map[string]any{
		"kind": "youtube#searchResult",
		"etag": "etag-" + channelID,
		"id":   map[string]any{"kind": "youtube#channel", "channelId": channelID},
		"snippet": map[string]any{
			"channelId":    channelID,
			"title":        title,
			"description":  title + " description",
			"channelTitle": title,
			"publishedAt":  "2015-01-01T00:00:00Z",
		},
	}
}

// NewSearchItems builds n search results with IDs UC0..UC<n-1>.
func NewSearchItems(n int) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, NewSearchItem(fmt.Sprintf("UC%d", i), fmt.Sprintf("Channel %d", i)))
	}
	return items
}

// NewQuotaExceededError returns the error the API serves when the daily quota is spent.
func NewQuotaExceededError() MockError {
	return MockError{
		StatusCode: http.StatusForbidden,
		Reason:     "quotaExceeded",
		Message:    "The request cannot be completed because you have exceeded your quota.",
	}
}

// NewServerError returns a backend error response.
func NewServerError() MockError {
	return MockError{
		StatusCode: http.StatusInternalServerError,
		Reason:     "backendError",
		Message:    "Backend Error",
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, e MockError) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    e.StatusCode,
			"message": e.Message,
			"errors": []map[string]any{{
				"message": e.Message,
				"domain":  "youtube.api",
				"reason":  e.Reason,
			}},
		},
	})
}
