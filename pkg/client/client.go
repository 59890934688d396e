// Package client provides the YouTube Data API HTTP client used by the
// scraper: channels.list and search.list calls, next-page derivation,
// error classification and request metrics.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/yt-channel-scraper/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for YouTube API client operations.
var (
	ytRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "youtube_requests_total",
		Help: "Total YouTube API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	ytRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "youtube_request_duration_seconds",
		Help:    "YouTube API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	ytErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "youtube_errors_total",
		Help: "Total YouTube API errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of API errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (bad parameters, unknown key, forbidden).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassQuota represents quota or rate limit rejections (403/429 with a quota reason).
	ErrorClassQuota ErrorClass = "quota"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// API method names, as used for quota accounting and metrics.
const (
	MethodChannelsList = "channels.list"
	MethodSearchList   = "search.list"
)

// QuotaRecorder accounts for the quota cost of API calls.
type QuotaRecorder interface {
	Record(ctx context.Context, method string) error
}

// Client is the YouTube Data API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// APIKey is the developer key sent as the "key" query parameter (REQUIRED).
	APIKey string

	// ServiceName and Version select the API, e.g. "youtube" and "v3".
	ServiceName string
	Version     string

	// BaseURL overrides https://www.googleapis.com/{ServiceName}/{Version}.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per request.
	Timeout time.Duration

	// Quota is optional; when set every request that reaches the API is recorded.
	Quota QuotaRecorder
}

// DefaultConfig returns a default configuration for the given API key.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:      apiKey,
		ServiceName: "youtube",
		Version:     "v3",
		UserAgent:   "yt-channel-scraper/0.1.0",
		Timeout:     30 * time.Second,
	}
}

// New creates a new YouTube API client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.BaseURL == "" {
		if cfg.ServiceName == "" || cfg.Version == "" {
			return nil, fmt.Errorf("service name and version are required")
		}
		cfg.BaseURL = fmt.Sprintf("https://www.googleapis.com/%s/%s", cfg.ServiceName, cfg.Version)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := logging.NewLogger(logging.ComponentClient)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		logger:  logger,
	}, nil
}

// ListChannels performs a channels.list request.
func (c *Client) ListChannels(ctx context.Context, call ChannelsListCall) (*ChannelListResponse, error) {
	var out ChannelListResponse
	if err := c.get(ctx, MethodChannelsList, "/channels", call.params(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search performs a search.list request.
func (c *Client) Search(ctx context.Context, call *SearchCall) (*SearchListResponse, error) {
	if call == nil {
		return nil, fmt.Errorf("search call is nil")
	}

	var out SearchListResponse
	if err := c.get(ctx, MethodSearchList, "/search", call.Params(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get executes one GET request and decodes the JSON body into out.
// There is no retry: an error is classified, counted and returned.
func (c *Client) get(ctx context.Context, method, path string, params url.Values, out any) error {
	startTime := time.Now()
	defer func() {
		ytRequestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	query := cloneValues(params)
	query.Set("key", c.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("endpoint", method).
		Str("part", params.Get("part")).
		Msg("Executing YouTube API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errClass := c.classifyError(nil, err)
		ytErrorsTotal.WithLabelValues(string(errClass)).Inc()
		ytRequestsTotal.WithLabelValues(method, "network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", method).Msg("HTTP request failed")
		return &APIError{
			ErrorClass: errClass,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	c.recordQuota(ctx, method)
	ytRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		apiErr := parseErrorResponse(resp)
		apiErr.ErrorClass = c.classifyError(resp, nil)
		if apiErr.ErrorClass == ErrorClassClient && isQuotaReason(apiErr.Reason) {
			apiErr.ErrorClass = ErrorClassQuota
		}
		ytErrorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()

		c.logger.Warn().
			Str("endpoint", method).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.ErrorClass)).
			Str("reason", apiErr.Reason).
			Msg("YouTube API request error")
		return apiErr
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}

	return nil
}

func (c *Client) recordQuota(ctx context.Context, method string) {
	if c.config.Quota == nil {
		return
	}
	if err := c.config.Quota.Record(ctx, method); err != nil {
		c.logger.Warn().Err(err).Str("endpoint", method).Msg("Failed to record quota usage")
	}
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		c.logger.Debug().Str("class", string(ErrorClassNetwork)).Msg("Error classified")
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Debug().Str("class", string(ErrorClassQuota)).Msg("Error classified")
		return ErrorClassQuota
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		c.logger.Debug().Str("class", string(ErrorClassClient)).Msg("Error classified")
		return ErrorClassClient
	case resp.StatusCode >= 500:
		c.logger.Debug().Str("class", string(ErrorClassServer)).Msg("Error classified")
		return ErrorClassServer
	default:
		return ""
	}
}

// Close releases idle connections held by the client. The client remains
// usable; the next request opens a new connection.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}
