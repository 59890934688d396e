// Package scraper fetches YouTube channel attributes and searches channels.
//
// A Scraper turns a flat list of requested attribute names into a single
// channels.list request and flattens the response back into a Record. It
// also walks search.list pages until a result cap is reached.
package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/yt-channel-scraper/pkg/client"
	"github.com/Sternrassler/yt-channel-scraper/pkg/fields"
	"github.com/Sternrassler/yt-channel-scraper/pkg/logging"
	"github.com/rs/zerolog"
)

// ErrChannelNotFound is returned when a channel ID matches no channel.
var ErrChannelNotFound = errors.New("channel not found")

// Record maps attribute names to their values. Attributes the API did not
// return are present with a nil value.
type Record map[string]any

// Snippet is the "snippet" object of one search result.
type Snippet map[string]any

// API is the subset of the YouTube Data API the scraper uses.
// *client.Client implements it.
type API interface {
	ListChannels(ctx context.Context, call client.ChannelsListCall) (*client.ChannelListResponse, error)
	Search(ctx context.Context, call *client.SearchCall) (*client.SearchListResponse, error)
	// Close releases the connection held for the last call.
	Close() error
}

// Scraper fetches channel data through an API.
type Scraper struct {
	api     API
	catalog fields.Catalog
	logger  zerolog.Logger
}

// New creates a Scraper over api using the channel attribute catalog.
func New(api API) *Scraper {
	return &Scraper{
		api:     api,
		catalog: fields.ChannelCatalog(),
		logger:  logging.NewLogger(logging.ComponentScraper),
	}
}

// Catalog returns the attribute catalog channel requests resolve against.
func (s *Scraper) Catalog() fields.Catalog {
	return s.catalog
}

// FetchChannel returns the requested attributes of one channel. With no
// attributes every catalog attribute is fetched. Names outside the catalog
// are ignored.
func (s *Scraper) FetchChannel(ctx context.Context, channelID string, attributes ...string) (Record, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel id is required")
	}

	plan := fields.Resolve(attributes, s.catalog)
	if len(plan.Dropped) > 0 {
		s.logger.Debug().
			Strs("attributes", plan.Dropped).
			Msg("Ignoring unknown channel attributes")
	}
	if plan.Empty() {
		return Record{}, nil
	}

	resp, err := s.listChannel(ctx, plan.PartParam(), channelID)
	if err != nil {
		s.reportError(err)
		return nil, err
	}

	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}

	return extractRecord(resp.Items[0], plan), nil
}

// listChannel issues one channels.list call and releases the connection
// whatever the outcome.
func (s *Scraper) listChannel(ctx context.Context, part, channelID string) (*client.ChannelListResponse, error) {
	defer s.release()

	return s.api.ListChannels(ctx, client.ChannelsListCall{Part: part, ID: channelID})
}

// extractRecord flattens the planned attributes out of a channel resource.
// brandingSettings nests its attributes one level deeper under "channel".
func extractRecord(item map[string]any, plan fields.Plan) Record {
	record := make(Record)
	for part, attrs := range plan.AttributesByPart {
		section, _ := item[part].(map[string]any)
		if part == fields.PartBrandingSettings {
			section, _ = section["channel"].(map[string]any)
		}
		for _, attr := range attrs {
			record[attr] = section[attr]
		}
	}
	return record
}

func (s *Scraper) release() {
	if err := s.api.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to release API connection")
	}
}

// reportError logs an API failure with its status and message.
func (s *Scraper) reportError(err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		s.logger.Error().
			Int("status", apiErr.StatusCode).
			Str("message", apiErr.Message).
			Str("reason", apiErr.Reason).
			Str("error_class", string(apiErr.ErrorClass)).
			Msg("Error calling YouTube API")
		return
	}
	s.logger.Error().Err(err).Msg("Error calling YouTube API")
}
