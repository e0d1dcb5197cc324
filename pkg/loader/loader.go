// Package loader is the record-store side of the tastypie adapter: it
// composes an adapter.Strategy with a metadata store to load batches of
// records and to walk paginated lists.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/tastypie-client/pkg/adapter"
	"github.com/Sternrassler/tastypie-client/pkg/metastore"
	"github.com/Sternrassler/tastypie-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds loader configuration.
type Config struct {
	// Since is the list metadata field holding the continuation token.
	// It should match the adapter's Since option.
	Since string

	// MaxConcurrency bounds the number of find-many groups in flight.
	MaxConcurrency int

	// Pages configures LoadAllPages.
	Pages pagination.Config
}

// DefaultConfig returns a default loader configuration.
func DefaultConfig() Config {
	return Config{
		Since:          adapter.DefaultSince,
		MaxConcurrency: 4,
		Pages:          pagination.DefaultConfig(),
	}
}

// GroupResult is the payload of one find-many request.
type GroupResult struct {
	Type    string
	Records []adapter.Record
	Payload []byte
}

// Loader loads records through a Strategy.
type Loader struct {
	strategy adapter.Strategy
	store    metastore.Store
	config   Config
	logger   zerolog.Logger
}

// New creates a new loader.
func New(strategy adapter.Strategy, store metastore.Store, cfg Config) (*Loader, error) {
	if strategy == nil {
		return nil, fmt.Errorf("strategy is required")
	}
	if store == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if cfg.Since == "" {
		return nil, fmt.Errorf("since field is required")
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultConfig().MaxConcurrency
	}

	return &Loader{
		strategy: strategy,
		store:    store,
		config:   cfg,
		logger:   log.With().Str("component", "tastypie-loader").Logger(),
	}, nil
}

// LoadMany groups records with the strategy and issues one FindMany per
// group concurrently. Results follow the group order. The first failure
// cancels the remaining requests and is returned as-is.
func (l *Loader) LoadMany(ctx context.Context, records []adapter.Record) ([]GroupResult, error) {
	groups := l.strategy.GroupRecordsForFindMany(records)
	results := make([]GroupResult, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.config.MaxConcurrency)

	for i, group := range groups {
		g.Go(func() error {
			ids := make([]string, len(group))
			for j, r := range group {
				ids[j] = r.ID
			}

			payload, err := l.strategy.FindMany(gctx, group[0].Type, ids)
			if err != nil {
				return err
			}

			results[i] = GroupResult{Type: group[0].Type, Records: group, Payload: payload}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Debug().
		Int("records", len(records)).
		Int("groups", len(groups)).
		Msg("Loaded records")

	return results, nil
}

// LoadAll loads the next page of a type's list, resuming from the stored
// continuation token, and stores the token of the page after it. Once the
// last page is reached the stored token is empty and the next call starts
// over. Metadata store failures are logged and do not fail the load.
func (l *Loader) LoadAll(ctx context.Context, typeKey string) ([]byte, error) {
	var since string
	meta, err := l.store.Get(ctx, typeKey)
	switch {
	case err == nil:
		since = meta.Since
	case errors.Is(err, metastore.ErrNotFound):
	default:
		l.logger.Warn().Err(err).Str("type", typeKey).Msg("Metadata lookup failed, loading first page")
	}

	payload, err := l.strategy.FindAll(ctx, typeKey, since)
	if err != nil {
		return nil, err
	}

	next, err := pagination.SinceToken(payload, l.config.Since)
	if err != nil {
		return nil, fmt.Errorf("read %s token: %w", l.config.Since, err)
	}

	stored := metastore.TypeMetadata{Since: next}
	if list, err := pagination.DecodeList(payload); err == nil {
		stored.TotalCount = list.Meta.TotalCount
	}

	if err := l.store.Set(ctx, typeKey, stored); err != nil {
		l.logger.Warn().Err(err).Str("type", typeKey).Msg("Failed to store metadata")
	}

	l.logger.Info().
		Str("type", typeKey).
		Str("since", since).
		Str("next", next).
		Msg("Loaded list page")

	return payload, nil
}

// Reset forgets the stored continuation token of a type.
func (l *Loader) Reset(ctx context.Context, typeKey string) error {
	return l.store.Delete(ctx, typeKey)
}

// LoadAllPages fetches every page of a type's list in parallel.
// Pages are keyed by offset.
func (l *Loader) LoadAllPages(ctx context.Context, typeKey string) (map[int][]byte, error) {
	return pagination.NewBatchFetcher(l, l.config.Pages).FetchAllPages(ctx, typeKey)
}

// FetchPage implements pagination.PageFetcher on top of FindAll.
func (l *Loader) FetchPage(ctx context.Context, typeKey string, offset int) ([]byte, pagination.Meta, error) {
	payload, err := l.strategy.FindAll(ctx, typeKey, fmt.Sprintf("offset=%d", offset))
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	list, err := pagination.DecodeList(payload)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	return payload, list.Meta, nil
}
