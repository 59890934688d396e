//go:build integration

package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/yt-channel-scraper/internal/testutil"
	"github.com/Sternrassler/yt-channel-scraper/pkg/client"
	"github.com/Sternrassler/yt-channel-scraper/pkg/quota"
	"github.com/Sternrassler/yt-channel-scraper/pkg/scraper"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// testTransport redirects requests for the public API host to the mock server.
type testTransport struct {
	mockServer *testutil.MockYouTube
}

func (t *testTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	if req.URL.Host == "www.googleapis.com" {
		req.URL.Host = strings.TrimPrefix(t.mockServer.URL(), "http://")
		req.URL.Path = strings.TrimPrefix(req.URL.Path, "/youtube/v3")
	}
	return http.DefaultTransport.RoundTrip(req)
}

// newScraper builds the full stack: client with the default API base URL,
// Redis-backed quota tracker, and scraper.
func newScraper(t *testing.T, redisClient *redis.Client, mock *testutil.MockYouTube, dailyLimit int) (*scraper.Scraper, *quota.Tracker) {
	t.Helper()

	tracker := quota.NewTracker(redisClient, zerolog.Nop(), dailyLimit)

	cfg := client.DefaultConfig(testutil.MockAPIKey)
	cfg.Quota = tracker
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	c.SetHTTPClient(&http.Client{
		Transport: &testTransport{mockServer: mock},
		Timeout:   30 * time.Second,
	})

	return scraper.New(c), tracker
}

// TestFetchChannelFlow tests the complete fetch flow: resolve parts, call
// channels.list, record quota, flatten the record.
func TestFetchChannelFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockYouTube()
	defer mock.Close()
	mock.SetChannel("UC4PooiX37Pld1T8J5SYT-SQ", map[string]any{
		"brandingSettings": map[string]any{"channel": map[string]any{"keywords": "comedy talk"}},
		"snippet":          map[string]any{"title": "Good Mythical Morning", "country": "US"},
		"statistics":       map[string]any{"viewCount": "9000000000", "subscriberCount": "18700000"},
	})

	s, tracker := newScraper(t, redisClient, mock, 0)
	ctx := context.Background()

	record, err := s.FetchChannel(ctx, "UC4PooiX37Pld1T8J5SYT-SQ", "viewCount", "subscriberCount", "keywords", "title")
	if err != nil {
		t.Fatalf("FetchChannel() error = %v", err)
	}

	if record["keywords"] != "comedy talk" || record["title"] != "Good Mythical Morning" || record["viewCount"] != "9000000000" {
		t.Errorf("unexpected record: %v", record)
	}

	reqs := mock.Requests("/channels")
	if len(reqs) != 1 {
		t.Fatalf("channels requests = %d, want 1", len(reqs))
	}
	if got := reqs[0].Get("part"); got != "brandingSettings,snippet,statistics" {
		t.Errorf("part = %q", got)
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Used != 1 || state.ByMethod[client.MethodChannelsList] != 1 {
		t.Errorf("quota state = %+v, want 1 unit for channels.list", state)
	}
}

// TestSearchFlowQuota pages through search results and checks that every
// page is charged.
func TestSearchFlowQuota(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockYouTube()
	defer mock.Close()
	mock.SetSearchResults(testutil.NewSearchItems(130))

	s, tracker := newScraper(t, redisClient, mock, 0)
	ctx := context.Background()

	snippets, err := s.SearchChannels(ctx, "cooking channels", 120, scraper.SearchOptions{TopicID: "/m/02wbm"})
	if err != nil {
		t.Fatalf("SearchChannels() error = %v", err)
	}
	if len(snippets) != 120 {
		t.Errorf("got %d snippets, want 120", len(snippets))
	}

	for i, req := range mock.Requests("/search") {
		if req.Get("maxResults") != "50" || req.Get("topicId") != "/m/02wbm" || req.Get("type") != "channel" {
			t.Errorf("page %d request params = %v", i+1, req)
		}
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Used != 300 {
		t.Errorf("Used = %d, want 300 (3 pages x 100)", state.Used)
	}
}

// TestQuotaSharedAcrossTrackers verifies that separate processes see the
// same daily usage through Redis.
func TestQuotaSharedAcrossTrackers(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	a := quota.NewTracker(redisClient, zerolog.Nop(), 0)
	b := quota.NewTracker(redisClient, zerolog.Nop(), 0)

	if err := a.Record(ctx, client.MethodSearchList); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := b.Record(ctx, client.MethodChannelsList); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	for name, tr := range map[string]*quota.Tracker{"a": a, "b": b} {
		state, err := tr.GetState(ctx)
		if err != nil {
			t.Fatalf("tracker %s GetState() error = %v", name, err)
		}
		if state.Used != 101 {
			t.Errorf("tracker %s Used = %d, want 101", name, state.Used)
		}
	}

	ttl, err := redisClient.TTL(ctx, "yt:quota:"+quota.DayOf(time.Now())+":used").Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 {
		t.Errorf("day key TTL = %v, want a positive expiry", ttl)
	}
}

// TestExhaustedQuotaDoesNotBlock checks that accounting never gates calls.
func TestExhaustedQuotaDoesNotBlock(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockYouTube()
	defer mock.Close()
	mock.SetSearchResults(testutil.NewSearchItems(3))

	s, tracker := newScraper(t, redisClient, mock, 150)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.SearchChannels(ctx, "cooking", 5, scraper.SearchOptions{}); err != nil {
			t.Fatalf("search %d failed: %v", i+1, err)
		}
	}

	if mock.GetRequestCount("/search") != 3 {
		t.Errorf("search requests = %d, want 3", mock.GetRequestCount("/search"))
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsExhausted() {
		t.Errorf("state should be exhausted: used %d of %d", state.Used, state.Limit)
	}
}

// TestRedisOutageDoesNotFailRequests stops Redis mid-run.
func TestRedisOutageDoesNotFailRequests(t *testing.T) {
	redisClient, cleanup := setupRedis(t)

	mock := testutil.NewMockYouTube()
	defer mock.Close()
	mock.SetChannel("UC1", map[string]any{"snippet": map[string]any{"title": "still here"}})

	s, _ := newScraper(t, redisClient, mock, 0)
	cleanup()

	record, err := s.FetchChannel(context.Background(), "UC1", "title")
	if err != nil {
		t.Fatalf("FetchChannel() with Redis down error = %v", err)
	}
	if record["title"] != "still here" {
		t.Errorf("title = %v", record["title"])
	}
}

// TestAPIErrorFlow checks error propagation through the full stack.
func TestAPIErrorFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockYouTube()
	defer mock.Close()
	mock.SetSearchResults(testutil.NewSearchItems(10))
	mock.SetSearchError(1, testutil.NewQuotaExceededError())

	s, tracker := newScraper(t, redisClient, mock, 0)
	ctx := context.Background()

	snippets, err := s.SearchChannels(ctx, "cooking", 10, scraper.SearchOptions{})
	if err == nil {
		t.Fatal("SearchChannels() should fail on quotaExceeded")
	}
	if len(snippets) != 0 {
		t.Errorf("got %d snippets, want 0", len(snippets))
	}

	// The API rejected the call but still answered, so it is accounted.
	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Used != 100 {
		t.Errorf("Used = %d, want 100", state.Used)
	}
}
