// Package adapter teaches a client-side record store how to talk to a
// django-tastypie REST API: URL shaping, trailing-slash normalization,
// pagination offsets and find-many batching.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Defaults matching a stock tastypie installation.
const (
	DefaultNamespace    = "api/v1"
	DefaultSince        = "next"
	DefaultMaxURLLength = 2048
	DefaultSerializer   = "-django-tastypie"
)

// ErrBulkCommitUnsupported is returned by New when bulk commits are requested.
var ErrBulkCommitUnsupported = errors.New("bulk commit is not supported by the tastypie adapter")

// Config holds the adapter configuration.
type Config struct {
	// ServerDomain prefixes every URL for cross-site requests,
	// e.g. "https://api.example.com/". Empty means same origin.
	ServerDomain string

	// Namespace is the API path prefix.
	Namespace string

	// Since names the field of the list metadata that carries the
	// continuation token for the next page.
	Since string

	// MaxURLLength caps the length of batched find-many requests.
	// See http://stackoverflow.com/questions/417142
	MaxURLLength int

	// BulkCommit is not supported; New rejects a config with it set.
	BulkCommit bool

	// Serializer is the name returned by DefaultSerializer.
	Serializer string
}

// DefaultConfig returns the configuration of a stock tastypie API
// served from the same origin.
func DefaultConfig() Config {
	return Config{
		Namespace:    DefaultNamespace,
		Since:        DefaultSince,
		MaxURLLength: DefaultMaxURLLength,
		Serializer:   DefaultSerializer,
	}
}

// Request describes a single call the adapter wants the transport to make.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Body   []byte
}

// Transport executes requests built by the adapter. It returns the raw
// response payload; decoding it is up to the caller.
type Transport interface {
	Ajax(ctx context.Context, req Request) ([]byte, error)
}

// Strategy is the capability set a record store composes at runtime.
type Strategy interface {
	BuildURL(typeKey, id string) string
	FindMany(ctx context.Context, typeKey string, ids []string) ([]byte, error)
	FindAll(ctx context.Context, typeKey, sinceToken string) ([]byte, error)
	GroupRecordsForFindMany(records []Record) [][]Record
}

var _ Strategy = (*Adapter)(nil)

// Adapter builds tastypie URLs and issues requests through a Transport.
// It holds no mutable state and is safe for concurrent use.
type Adapter struct {
	config    Config
	transport Transport
	logger    zerolog.Logger
}

// New creates a new tastypie adapter.
func New(cfg Config, transport Transport) (*Adapter, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	if cfg.BulkCommit {
		return nil, ErrBulkCommitUnsupported
	}

	if cfg.MaxURLLength <= 0 {
		return nil, fmt.Errorf("max_url_length must be > 0 (got %d)", cfg.MaxURLLength)
	}

	if cfg.Since == "" {
		return nil, fmt.Errorf("since field is required")
	}

	if cfg.Serializer == "" {
		cfg.Serializer = DefaultSerializer
	}

	return &Adapter{
		config:    cfg,
		transport: transport,
		logger:    log.With().Str("component", "tastypie-adapter").Logger(),
	}, nil
}

// Config returns the adapter configuration.
func (a *Adapter) Config() Config {
	return a.config
}

// DefaultSerializer names the serializer the record store should pair
// with this adapter.
func (a *Adapter) DefaultSerializer() string {
	return a.config.Serializer
}

// PathForType returns the URL path segment for a type. Tastypie does not
// pluralize resource names.
func PathForType(typeKey string) string {
	return typeKey
}

// RemoveTrailingSlash strips a single trailing slash from s.
func RemoveTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}

// BuildURL returns the URL of a resource list, or of a single record when
// id is not empty. The result always ends with a slash so Django does not
// have to redirect.
func (a *Adapter) BuildURL(typeKey, id string) string {
	var parts []string
	if a.config.Namespace != "" {
		parts = append(parts, a.config.Namespace)
	}
	if typeKey != "" {
		parts = append(parts, PathForType(typeKey))
	}
	if id != "" {
		parts = append(parts, url.PathEscape(id))
	}

	u := "/" + strings.Join(parts, "/")
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}

	if a.config.ServerDomain != "" {
		u = RemoveTrailingSlash(a.config.ServerDomain) + u
	}

	return u
}
