// Package pagination understands tastypie list pagination.
//
// Tastypie wraps list responses in a {"meta": ..., "objects": [...]} envelope.
// The meta block carries limit, offset, total_count and the next/previous page
// URLs. The next URL doubles as the continuation token handed back to FindAll;
// ParseOffset pulls the numeric offset out of it.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(pageFetcher, pagination.DefaultConfig())
//	pages, err := fetcher.FetchAllPages(ctx, "entry")
//
// The batch fetcher:
//   - Fetches the first page to learn total_count and limit
//   - Spawns a worker pool (default 4 workers)
//   - Distributes the remaining offsets across workers
//   - Returns partial results alongside the first worker error
package pagination
