package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/yt-channel-scraper/pkg/client"
	"github.com/Sternrassler/yt-channel-scraper/pkg/logging"
	"github.com/Sternrassler/yt-channel-scraper/pkg/metrics"
	"github.com/Sternrassler/yt-channel-scraper/pkg/quota"
	"github.com/Sternrassler/yt-channel-scraper/pkg/scraper"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HeaderRequestID carries the request correlation ID.
const HeaderRequestID = "X-Request-ID"

const (
	defaultSearchMax = 10
	shutdownTimeout  = 10 * time.Second
)

// searchControlParams are /v1/search query parameters consumed by the
// handler itself; everything else is passed through to search.list.
var searchControlParams = map[string]bool{
	"q":       true,
	"max":     true,
	"topicId": true,
}

func runServe(ctx context.Context, a *app, args []string, _, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", ":8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	srv := newServer(a.scraper, a.tracker, a.redis)
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Info().Str("addr", *addr).Msg("Starting YouTube scraper server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			srv.logger.Error().Err(err).Msg("Server failed")
			return exitFailure
		}
	case <-ctx.Done():
		srv.logger.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			srv.logger.Error().Err(err).Msg("Graceful shutdown failed")
			return exitFailure
		}
	}
	return exitOK
}

// server exposes the scraper over HTTP.
type server struct {
	scraper *scraper.Scraper
	tracker *quota.Tracker // nil when quota accounting is off
	redis   *redis.Client  // nil when quota accounting is off
	logger  zerolog.Logger
}

func newServer(s *scraper.Scraper, tracker *quota.Tracker, redisClient *redis.Client) *server {
	return &server{
		scraper: s,
		tracker: tracker,
		redis:   redisClient,
		logger:  logging.NewLogger(logging.ComponentServer),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.accessLog)

	r.Get("/health", healthHandler)
	r.Get("/ready", s.readyHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/channels/{id}", s.channelHandler)
		r.Get("/search", s.searchHandler)
		r.Get("/quota", s.quotaHandler)
	})

	return r
}

type requestIDKey struct{}

// requestID assigns every request a correlation ID, reusing the caller's
// X-Request-ID when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed: Redis unreachable")
			http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) channelHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	attrs := splitList(r.URL.Query().Get("fields"))

	record, err := s.scraper.FetchChannel(r.Context(), id, attrs...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// searchResponse is the /v1/search body. Partial is set when a page failed
// after some results were collected.
type searchResponse struct {
	Items   []scraper.Snippet `json:"items"`
	Count   int               `json:"count"`
	Partial bool              `json:"partial,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func (s *server) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		s.writeBadRequest(w, r, "query parameter q is required")
		return
	}

	maxChannels := defaultSearchMax
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeBadRequest(w, r, fmt.Sprintf("max must be a non-negative integer, got %q", v))
			return
		}
		maxChannels = n
	}

	opts := scraper.SearchOptions{TopicID: q.Get("topicId"), Extra: map[string]string{}}
	for k := range q {
		if !searchControlParams[k] {
			opts.Extra[k] = q.Get(k)
		}
	}

	snippets, err := s.scraper.SearchChannels(r.Context(), query, maxChannels, opts)
	if err != nil && len(snippets) == 0 {
		s.writeError(w, r, err)
		return
	}

	resp := searchResponse{Items: snippets, Count: len(snippets)}
	if err != nil {
		resp.Partial = true
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// quotaResponse is the /v1/quota body.
type quotaResponse struct {
	Day        string         `json:"day"`
	Used       int            `json:"used"`
	Limit      int            `json:"limit"`
	Remaining  int            `json:"remaining"`
	ByMethod   map[string]int `json:"byMethod"`
	LastUpdate *time.Time     `json:"lastUpdate,omitempty"`
	ResetsIn   string         `json:"resetsIn"`
}

func (s *server) quotaHandler(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeJSON(w, http.StatusNotFound, errorBody(r, "quota accounting is not configured"))
		return
	}

	state, err := s.tracker.GetState(r.Context())
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Msg("Failed to read quota state")
		writeJSON(w, http.StatusServiceUnavailable, errorBody(r, "quota state unavailable"))
		return
	}

	resp := quotaResponse{
		Day:       state.Day,
		Used:      state.Used,
		Limit:     state.Limit,
		Remaining: state.Remaining(),
		ByMethod:  state.ByMethod,
		ResetsIn:  state.TimeUntilReset(time.Now()).Round(time.Second).String(),
	}
	if !state.LastUpdate.IsZero() {
		resp.LastUpdate = &state.LastUpdate
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps scraper and API errors onto HTTP status codes.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var apiErr *client.APIError
	switch {
	case errors.Is(err, scraper.ErrChannelNotFound):
		status = http.StatusNotFound
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	s.logger.Warn().
		Err(err).
		Str("request_id", requestIDFrom(r.Context())).
		Int("status", status).
		Msg("Request failed")

	writeJSON(w, status, errorBody(r, err.Error()))
}

func (s *server) writeBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody(r, msg))
}

func errorBody(r *http.Request, msg string) map[string]string {
	return map[string]string{
		"error":      msg,
		"request_id": requestIDFrom(r.Context()),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
