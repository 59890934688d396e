package scraper

import (
	"context"
	"net/url"
	"strconv"

	"github.com/Sternrassler/yt-channel-scraper/pkg/client"
	"github.com/Sternrassler/yt-channel-scraper/pkg/pagination"
)

// reservedSearchParams are set by SearchChannels and cannot be overridden
// through SearchOptions.Extra.
var reservedSearchParams = map[string]bool{
	"part":       true,
	"type":       true,
	"q":          true,
	"maxResults": true,
	"pageToken":  true,
	"key":        true,
}

// SearchOptions holds optional search.list filters.
type SearchOptions struct {
	// TopicID restricts results to a Freebase topic, e.g. "/m/02wbm" (food).
	TopicID string

	// Extra holds further search.list parameters passed through as-is,
	// e.g. "regionCode" or "relevanceLanguage".
	Extra map[string]string
}

// SearchChannels returns up to maxChannels channel snippets matching query.
//
// Pages are fetched until maxChannels snippets are collected or the results
// run out. If a page fails the search stops there: the snippets gathered so
// far are returned together with the error.
func (s *Scraper) SearchChannels(ctx context.Context, query string, maxChannels int, opts SearchOptions) ([]Snippet, error) {
	params := s.searchParams(query, maxChannels, opts)

	pager := &searchPager{scraper: s, call: client.NewSearchCall(params)}
	snippets, err := pagination.Collect[Snippet](ctx, pager, maxChannels)
	if err != nil {
		s.reportError(err)
		return snippets, err
	}
	return snippets, nil
}

func (s *Scraper) searchParams(query string, maxChannels int, opts SearchOptions) url.Values {
	params := url.Values{}
	for k, v := range opts.Extra {
		if reservedSearchParams[k] {
			s.logger.Warn().
				Str("param", k).
				Msg("Ignoring reserved search parameter")
			continue
		}
		params.Set(k, v)
	}
	if opts.TopicID != "" {
		params.Set("topicId", opts.TopicID)
	}

	params.Set("part", "snippet")
	params.Set("type", "channel")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(pagination.PageSize(maxChannels)))
	return params
}

// searchPager walks search.list pages, deriving each request from the
// previous request and response.
type searchPager struct {
	scraper *Scraper
	call    *client.SearchCall
}

func (p *searchPager) Next(ctx context.Context) ([]Snippet, bool, error) {
	resp, err := p.fetch(ctx)
	if err != nil {
		return nil, false, err
	}

	snippets := make([]Snippet, 0, len(resp.Items))
	for _, item := range resp.Items {
		snippet, _ := item["snippet"].(map[string]any)
		snippets = append(snippets, Snippet(snippet))
	}

	p.call = client.NextSearchCall(p.call, resp)
	return snippets, p.call != nil, nil
}

// fetch executes the current page request and releases the connection
// whatever the outcome.
func (p *searchPager) fetch(ctx context.Context) (*client.SearchListResponse, error) {
	defer p.scraper.release()

	return p.scraper.api.Search(ctx, p.call)
}
