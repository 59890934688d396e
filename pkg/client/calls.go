package client

import (
	"net/url"
)

// ChannelsListCall describes a channels.list request.
type ChannelsListCall struct {
	// Part is the comma-separated list of parts to return.
	Part string
	// ID is the channel ID.
	ID string
}

func (c ChannelsListCall) params() url.Values {
	return url.Values{
		"part": {c.Part},
		"id":   {c.ID},
	}
}

// ChannelListResponse is the channels.list response. Items are kept as
// decoded JSON objects.
type ChannelListResponse struct {
	Kind     string           `json:"kind"`
	ETag     string           `json:"etag"`
	PageInfo PageInfo         `json:"pageInfo"`
	Items    []map[string]any `json:"items"`
}

// PageInfo is the paging summary attached to list responses.
type PageInfo struct {
	TotalResults   int `json:"totalResults"`
	ResultsPerPage int `json:"resultsPerPage"`
}

// SearchListResponse is one page of search.list results.
type SearchListResponse struct {
	Kind          string           `json:"kind"`
	ETag          string           `json:"etag"`
	NextPageToken string           `json:"nextPageToken"`
	PrevPageToken string           `json:"prevPageToken"`
	RegionCode    string           `json:"regionCode"`
	PageInfo      PageInfo         `json:"pageInfo"`
	Items         []map[string]any `json:"items"`
}

// SearchCall describes one search.list request. It is immutable once built;
// NextSearchCall derives the follow-up request.
type SearchCall struct {
	params url.Values
}

// NewSearchCall creates a search.list request with the given query parameters.
// The parameters are copied.
func NewSearchCall(params url.Values) *SearchCall {
	return &SearchCall{params: cloneValues(params)}
}

// Params returns a copy of the request's query parameters.
func (c *SearchCall) Params() url.Values {
	return cloneValues(c.params)
}

// PageToken returns the continuation cursor this call requests, if any.
func (c *SearchCall) PageToken() string {
	return c.params.Get("pageToken")
}

// NextSearchCall derives the request for the page after resp. It returns
// nil when resp carries no continuation cursor.
func NextSearchCall(prev *SearchCall, resp *SearchListResponse) *SearchCall {
	if prev == nil || resp == nil || resp.NextPageToken == "" {
		return nil
	}

	params := cloneValues(prev.params)
	params.Set("pageToken", resp.NextPageToken)
	return &SearchCall{params: params}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
