package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/Sternrassler/yt-channel-scraper/internal/testutil"
	"github.com/Sternrassler/yt-channel-scraper/pkg/client"
)

func TestSearchChannels_CapAndForcedParams(t *testing.T) {
	mock, s := newMockScraper(t)
	mock.SetSearchResults(testutil.NewSearchItems(23))

	snippets, err := s.SearchChannels(context.Background(), "cooking channels", 10, SearchOptions{TopicID: "/m/02wbm"})
	if err != nil {
		t.Fatalf("SearchChannels() error = %v", err)
	}

	if len(snippets) != 10 {
		t.Fatalf("got %d snippets, want 10", len(snippets))
	}
	if snippets[0]["channelId"] != "UC0" || snippets[9]["channelId"] != "UC9" {
		t.Errorf("unexpected snippet order: first %v, last %v", snippets[0]["channelId"], snippets[9]["channelId"])
	}

	reqs := mock.Requests("/search")
	if len(reqs) != 1 {
		t.Fatalf("search requests = %d, want 1", len(reqs))
	}
	want := map[string]string{
		"part":       "snippet",
		"type":       "channel",
		"q":          "cooking channels",
		"topicId":    "/m/02wbm",
		"maxResults": "10",
	}
	for k, v := range want {
		if got := reqs[0].Get(k); got != v {
			t.Errorf("param %s = %q, want %q", k, got, v)
		}
	}
}

func TestSearchChannels_PagesUntilCap(t *testing.T) {
	mock, s := newMockScraper(t)
	mock.SetSearchResults(testutil.NewSearchItems(130))

	snippets, err := s.SearchChannels(context.Background(), "cooking", 120, SearchOptions{})
	if err != nil {
		t.Fatalf("SearchChannels() error = %v", err)
	}
	if len(snippets) != 120 {
		t.Errorf("got %d snippets, want 120", len(snippets))
	}

	reqs := mock.Requests("/search")
	if len(reqs) != 3 {
		t.Fatalf("search requests = %d, want 3", len(reqs))
	}

	wantTokens := []string{"", "page-50", "page-100"}
	for i, req := range reqs {
		if got := req.Get("maxResults"); got != "50" {
			t.Errorf("request %d maxResults = %q, want 50", i+1, got)
		}
		if req.Get("part") != "snippet" || req.Get("type") != "channel" || req.Get("q") != "cooking" {
			t.Errorf("request %d lost forced params: %v", i+1, req)
		}
		if got := req.Get("pageToken"); got != wantTokens[i] {
			t.Errorf("request %d pageToken = %q, want %q", i+1, got, wantTokens[i])
		}
	}
}

func TestSearchChannels_CursorExhausted(t *testing.T) {
	mock, s := newMockScraper(t)
	mock.SetSearchResults(testutil.NewSearchItems(7))

	snippets, err := s.SearchChannels(context.Background(), "cooking", 10, SearchOptions{})
	if err != nil {
		t.Fatalf("SearchChannels() error = %v", err)
	}
	if len(snippets) != 7 {
		t.Errorf("got %d snippets, want 7", len(snippets))
	}
	if mock.GetRequestCount("/search") != 1 {
		t.Errorf("search requests = %d, want 1", mock.GetRequestCount("/search"))
	}
}

func TestSearchChannels_NoResults(t *testing.T) {
	_, s := newMockScraper(t)

	snippets, err := s.SearchChannels(context.Background(), "nothing matches", 10, SearchOptions{})
	if err != nil {
		t.Fatalf("SearchChannels() error = %v", err)
	}
	if snippets == nil || len(snippets) != 0 {
		t.Errorf("snippets = %v, want empty non-nil slice", snippets)
	}
}

func TestSearchChannels_FirstPageError(t *testing.T) {
	mock, s := newMockScraper(t)
	mock.SetSearchResults(testutil.NewSearchItems(20))
	mock.SetSearchError(1, testutil.NewQuotaExceededError())

	snippets, err := s.SearchChannels(context.Background(), "cooking", 10, SearchOptions{})

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *client.APIError", err)
	}
	if apiErr.ErrorClass != client.ErrorClassQuota {
		t.Errorf("ErrorClass = %q, want quota", apiErr.ErrorClass)
	}
	if snippets == nil || len(snippets) != 0 {
		t.Errorf("snippets = %v, want empty non-nil slice", snippets)
	}
}

func TestSearchChannels_LaterPageErrorKeepsPartialResults(t *testing.T) {
	mock, s := newMockScraper(t)
	mock.SetSearchResults(testutil.NewSearchItems(130))
	mock.SetSearchError(2, testutil.NewServerError())

	snippets, err := s.SearchChannels(context.Background(), "cooking", 120, SearchOptions{})
	if err == nil {
		t.Fatal("SearchChannels() should fail when a page fails")
	}
	if len(snippets) != 50 {
		t.Errorf("got %d snippets, want the 50 from page 1", len(snippets))
	}
	if mock.GetRequestCount("/search") != 2 {
		t.Errorf("search requests = %d, want 2", mock.GetRequestCount("/search"))
	}
}

func TestSearchChannels_ReservedExtraParamsIgnored(t *testing.T) {
	mock, s := newMockScraper(t)
	mock.SetSearchResults(testutil.NewSearchItems(3))

	opts := SearchOptions{Extra: map[string]string{
		"type":       "video",
		"maxResults": "1",
		"q":          "other",
		"regionCode": "DE",
	}}
	if _, err := s.SearchChannels(context.Background(), "cooking", 5, opts); err != nil {
		t.Fatalf("SearchChannels() error = %v", err)
	}

	req := mock.Requests("/search")[0]
	if req.Get("type") != "channel" || req.Get("maxResults") != "5" || req.Get("q") != "cooking" {
		t.Errorf("reserved params were overridden: %v", req)
	}
	if req.Get("regionCode") != "DE" {
		t.Errorf("regionCode = %q, want DE", req.Get("regionCode"))
	}
}

func TestSearchChannels_ZeroMaxMakesNoRequest(t *testing.T) {
	api := &fakeAPI{}
	s := New(api)

	snippets, err := s.SearchChannels(context.Background(), "cooking", 0, SearchOptions{})
	if err != nil {
		t.Fatalf("SearchChannels() error = %v", err)
	}
	if len(snippets) != 0 {
		t.Errorf("snippets = %v, want empty", snippets)
	}
	if len(api.searchCalls) != 0 {
		t.Errorf("search calls = %d, want 0", len(api.searchCalls))
	}
}

func TestSearchChannels_ReleasesAfterEveryPage(t *testing.T) {
	page := func(token string, ids ...string) *client.SearchListResponse {
		resp := &client.SearchListResponse{NextPageToken: token}
		for _, id := range ids {
			resp.Items = append(resp.Items, map[string]any{"snippet": map[string]any{"channelId": id}})
		}
		return resp
	}

	tests := []struct {
		name        string
		errAt       int
		wantCalls   int
		wantResults int
	}{
		{name: "all pages succeed", errAt: 0, wantCalls: 3, wantResults: 5},
		{name: "second page fails", errAt: 2, wantCalls: 2, wantResults: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{
				pages: []*client.SearchListResponse{
					page("t1", "UC1", "UC2"),
					page("t2", "UC3", "UC4"),
					page("", "UC5"),
				},
				searchErrAt: tt.errAt,
			}
			s := New(api)

			snippets, _ := s.SearchChannels(context.Background(), "q", 10, SearchOptions{})

			if len(api.searchCalls) != tt.wantCalls {
				t.Errorf("search calls = %d, want %d", len(api.searchCalls), tt.wantCalls)
			}
			if api.closes != tt.wantCalls {
				t.Errorf("Close() called %d times, want %d", api.closes, tt.wantCalls)
			}
			if len(snippets) != tt.wantResults {
				t.Errorf("got %d snippets, want %d", len(snippets), tt.wantResults)
			}
		})
	}
}

func TestSearchChannels_FollowsCursorFromPreviousResponse(t *testing.T) {
	api := &fakeAPI{pages: []*client.SearchListResponse{
		{NextPageToken: "CAoQAA", Items: []map[string]any{{"snippet": map[string]any{}}}},
		{Items: []map[string]any{{"snippet": map[string]any{}}}},
	}}
	s := New(api)

	if _, err := s.SearchChannels(context.Background(), "q", 10, SearchOptions{TopicID: "/m/02wbm"}); err != nil {
		t.Fatalf("SearchChannels() error = %v", err)
	}

	if len(api.searchCalls) != 2 {
		t.Fatalf("search calls = %d, want 2", len(api.searchCalls))
	}
	second := api.searchCalls[1].Params()
	if second.Get("pageToken") != "CAoQAA" {
		t.Errorf("pageToken = %q, want CAoQAA", second.Get("pageToken"))
	}
	if second.Get("topicId") != "/m/02wbm" {
		t.Errorf("topicId = %q, want it carried to the next page", second.Get("topicId"))
	}
}

func TestSearchChannels_ContextCancelled(t *testing.T) {
	api := &fakeAPI{}
	s := New(api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snippets, err := s.SearchChannels(ctx, "q", 10, SearchOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(snippets) != 0 {
		t.Errorf("snippets = %v, want empty", snippets)
	}
	if len(api.searchCalls) != 0 {
		t.Errorf("search calls = %d, want 0", len(api.searchCalls))
	}
}
