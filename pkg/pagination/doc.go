// Package pagination collects items from cursor-paginated endpoints.
//
// The YouTube Data API returns an opaque nextPageToken with every page that
// has a successor. This package walks such listings one page at a time until
// a caller-supplied cap is reached or the cursor runs out.
//
// Example usage:
//
//	items, err := pagination.Collect(ctx, pager, 120)
//	if err != nil {
//		// items still holds everything gathered before the failure
//	}
//
// The collector:
//   - Fetches pages strictly in order, one request in flight
//   - Stops mid-page once the cap is reached (never overshoots)
//   - Stops when the pager reports no continuation cursor
//   - Stops on the first page error without retrying, returning partial data
//   - Checks context cancellation before every page
package pagination
