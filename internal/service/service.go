// Package service defines the catalog service interface and its options.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcpindex/registry-proxy/internal/record"
	"github.com/mcpindex/registry-proxy/internal/syncer"
	"github.com/mcpindex/registry-proxy/internal/upstream"
)

const (
	// DefaultPageSize is the page size used when the caller does not set a limit
	DefaultPageSize = 30

	// MaxPageSize is the hard cap on page size for all listing operations
	MaxPageSize = 100
)

var (
	// ErrNotFound is returned when a server or indexed entry is not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest is returned when request input fails validation
	// before any fetch is attempted
	ErrInvalidRequest = errors.New("invalid request")
)

// CatalogService defines the operations exposed by the catalog proxy
type CatalogService interface {
	// CheckReadiness checks if the service is ready to serve requests
	CheckReadiness(ctx context.Context) error

	// ListServers returns a page of upstream servers, filtered by the
	// exclusion policy and optionally narrowed by a search term
	ListServers(ctx context.Context, opts ...Option[ListServersOptions]) (*ListServersResult, error)

	// GetServer resolves a single server by identity key ("name" or "name:version")
	GetServer(ctx context.Context, opts ...Option[GetServerOptions]) (*upstream.ServerEntity, error)

	// Sync walks the upstream feed and upserts surviving entries into the index.
	// The result summary is returned even when the run ends in a fatal fetch error.
	Sync(ctx context.Context, opts ...Option[SyncOptions]) (*syncer.Result, error)

	// ListEntries returns a page of indexed records straight from the store
	ListEntries(ctx context.Context, opts ...Option[ListEntriesOptions]) (*ListEntriesResult, error)

	// GetEntry returns a single indexed record by identity key
	GetEntry(ctx context.Context, id string) (*record.IndexedRecord, error)

	// GetSyncStatus returns the most recent persisted sync run summary
	GetSyncStatus(ctx context.Context) (*SyncRunInfo, error)
}

// ListServersResult is the result of the ListServers operation
type ListServersResult struct {
	Servers []*upstream.ServerEntity
	// NextCursor is empty when the list is exhausted. Its absence is the
	// only end-of-list signal.
	NextCursor string
}

// ListEntriesResult is the result of the ListEntries operation
type ListEntriesResult struct {
	Entries []record.IndexedRecord
	Total   int64
}

// SyncRunInfo is the persisted summary of a sync run
type SyncRunInfo struct {
	RegistryURL  string    `json:"registryUrl"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
	SyncedCount  int64     `json:"syncedCount"`
	SkippedCount int64     `json:"skippedCount"`
	ErrorCount   int64     `json:"errorCount"`
	LastError    string    `json:"lastError,omitempty"`
}

// Option is a function that sets an option for the ListServers, GetServer,
// Sync, or ListEntries operation
type Option[
	T ListServersOptions | GetServerOptions | SyncOptions | ListEntriesOptions,
] func(*T) error

// ListServersOptions is the options for the ListServers operation
type ListServersOptions struct {
	Cursor  string
	Limit   int
	Search  string
	Version string
}

// GetServerOptions is the options for the GetServer operation
type GetServerOptions struct {
	ID string
}

// SyncOptions is the options for the Sync operation
type SyncOptions struct {
	RegistryURL     string
	MaxApps         int
	OnlyWithRemotes bool
}

// ListEntriesOptions is the options for the ListEntries operation
type ListEntriesOptions struct {
	Limit      int
	Offset     int
	Search     string
	LatestOnly *bool
}

// WithCursor sets the cursor for the ListServers operation
func WithCursor(cursor string) Option[ListServersOptions] {
	return func(o *ListServersOptions) error {
		if cursor == "" {
			return fmt.Errorf("invalid cursor: %s", cursor)
		}
		o.Cursor = cursor
		return nil
	}
}

// WithVersion sets the version for the ListServers operation
func WithVersion(version string) Option[ListServersOptions] {
	return func(o *ListServersOptions) error {
		if version == "" {
			return fmt.Errorf("invalid version: %s", version)
		}
		o.Version = version
		return nil
	}
}

// WithID sets the identity key for the GetServer operation
func WithID(id string) Option[GetServerOptions] {
	return func(o *GetServerOptions) error {
		if id == "" {
			return fmt.Errorf("invalid id: %s", id)
		}
		o.ID = id
		return nil
	}
}

// WithRegistryURL sets a custom registry URL for the Sync operation
func WithRegistryURL(registryURL string) Option[SyncOptions] {
	return func(o *SyncOptions) error {
		if registryURL == "" {
			return fmt.Errorf("invalid registry URL: %s", registryURL)
		}
		o.RegistryURL = registryURL
		return nil
	}
}

// WithMaxApps caps the total number of entities synced in one run
func WithMaxApps(maxApps int) Option[SyncOptions] {
	return func(o *SyncOptions) error {
		if maxApps <= 0 {
			return fmt.Errorf("invalid max apps: %d", maxApps)
		}
		o.MaxApps = maxApps
		return nil
	}
}

// WithOnlyWithRemotes skips entities without remote endpoints during sync
func WithOnlyWithRemotes() Option[SyncOptions] {
	return func(o *SyncOptions) error {
		o.OnlyWithRemotes = true
		return nil
	}
}

// WithOffset sets the offset for the ListEntries operation
func WithOffset(offset int) Option[ListEntriesOptions] {
	return func(o *ListEntriesOptions) error {
		if offset < 0 {
			return fmt.Errorf("invalid offset: %d", offset)
		}
		o.Offset = offset
		return nil
	}
}

// WithLatestOnly narrows the ListEntries operation to latest-marked rows
func WithLatestOnly(latestOnly bool) Option[ListEntriesOptions] {
	return func(o *ListEntriesOptions) error {
		o.LatestOnly = &latestOnly
		return nil
	}
}

// WithSearch sets the search term for the ListServers or ListEntries operation
func WithSearch[T ListServersOptions | ListEntriesOptions](search string) Option[T] {
	return func(o *T) error {
		if search == "" {
			return fmt.Errorf("invalid search: %s", search)
		}

		switch o := any(o).(type) {
		case *ListServersOptions:
			o.Search = search
		case *ListEntriesOptions:
			o.Search = search
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}

		return nil
	}
}

// WithLimit sets the limit for the ListServers or ListEntries operation
func WithLimit[T ListServersOptions | ListEntriesOptions](limit int) Option[T] {
	return func(o *T) error {
		if limit <= 0 {
			return fmt.Errorf("invalid limit: %d", limit)
		}

		switch o := any(o).(type) {
		case *ListServersOptions:
			o.Limit = limit
		case *ListEntriesOptions:
			o.Limit = limit
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}

		return nil
	}
}
