package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tastypie_pages_fetched_total",
	Help: "Total list pages fetched by the batch fetcher",
})

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// Buffer size for channels
	BufferSize int
}

// DefaultConfig returns a configuration gentle enough for a Django backend.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		BufferSize:     100,
	}
}

// PageFetcher fetches one page of a resource list starting at offset.
type PageFetcher interface {
	FetchPage(ctx context.Context, typeKey string, offset int) (data []byte, meta Meta, err error)
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	Offset int
	Data   []byte
	Error  error
}

// BatchFetcher handles parallel fetching of list pages
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// Offsets lists the offsets of every page after the first, given the
// first page's metadata.
func Offsets(meta Meta) []int {
	if meta.Limit <= 0 || !meta.HasNext() {
		return nil
	}

	var offsets []int
	for off := meta.Offset + meta.Limit; off < meta.TotalCount; off += meta.Limit {
		offsets = append(offsets, off)
	}
	return offsets
}

// FetchAllPages fetches every page of a resource list in parallel.
// Returns a map of offset -> page payload for successful pages.
func (bf *BatchFetcher) FetchAllPages(ctx context.Context, typeKey string) (map[int][]byte, error) {
	start := time.Now()

	firstPage, meta, err := bf.fetcher.FetchPage(ctx, typeKey, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}
	pagesFetchedTotal.Inc()

	offsets := Offsets(meta)
	totalPages := len(offsets) + 1

	log.Info().
		Str("type", typeKey).
		Int("total_count", meta.TotalCount).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	results := map[int][]byte{meta.Offset: firstPage}
	if len(offsets) == 0 {
		log.Info().
			Str("type", typeKey).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return results, nil
	}

	offsetQueue := make(chan int, bf.config.BufferSize)
	pageResults := make(chan PageResult, bf.config.BufferSize)
	errs := make(chan error, bf.config.MaxConcurrency)
	done := make(chan struct{})

	go func() {
		defer close(offsetQueue)
		for _, off := range offsets {
			select {
			case offsetQueue <- off:
			case <-done:
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, typeKey, offsetQueue, pageResults, errs, &wg, i)
	}

	go func() {
		wg.Wait()
		close(done)
		close(pageResults)
		close(errs)
	}()

	for result := range pageResults {
		results[result.Offset] = result.Data
	}

	if err, ok := <-errs; ok && err != nil {
		log.Warn().
			Err(err).
			Int("fetched_pages", len(results)).
			Int("total_pages", totalPages).
			Msg("Worker error - returning partial results")
		return results, fmt.Errorf("worker error (partial data: %d/%d pages): %w", len(results), totalPages, err)
	}

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("fetch cancelled (partial data: %d/%d pages): %w", len(results), totalPages, err)
	}

	log.Info().
		Str("type", typeKey).
		Int("pages", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

// worker processes offsets from the queue
func (bf *BatchFetcher) worker(ctx context.Context, typeKey string, offsetQueue <-chan int, results chan<- PageResult, errs chan<- error, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for off := range offsetQueue {
		if ctx.Err() != nil {
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		data, _, err := bf.fetcher.FetchPage(pageCtx, typeKey, off)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("offset", off).
				Msg("Page fetch failed")

			select {
			case errs <- err:
			default:
			}
			return
		}
		pagesFetchedTotal.Inc()

		select {
		case results <- PageResult{Offset: off, Data: data}:
		case <-ctx.Done():
			return
		}

		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
