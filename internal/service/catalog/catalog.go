// Package catalog provides the upstream-and-store backed implementation of
// the CatalogService interface.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcpindex/registry-proxy/internal/listing"
	"github.com/mcpindex/registry-proxy/internal/otel"
	"github.com/mcpindex/registry-proxy/internal/record"
	"github.com/mcpindex/registry-proxy/internal/service"
	"github.com/mcpindex/registry-proxy/internal/store"
	"github.com/mcpindex/registry-proxy/internal/syncer"
	"github.com/mcpindex/registry-proxy/internal/upstream"
)

// Index is the store surface the service needs
type Index interface {
	Ping(ctx context.Context) error
	GetByID(ctx context.Context, id string) (*record.IndexedRecord, error)
	GetByName(ctx context.Context, name string, latestOnly bool) (*record.IndexedRecord, error)
	ListPaged(ctx context.Context, filters store.Filters, limit, offset int) ([]record.IndexedRecord, int64, error)
	RecordSyncRun(ctx context.Context, run store.SyncRun) error
	LatestSyncRun(ctx context.Context) (*store.SyncRun, error)
}

// Lister serves listing pages
type Lister interface {
	List(ctx context.Context, params listing.Params) (*listing.Page, error)
	Mode() string
}

// Syncer runs sync passes over the upstream feed
type Syncer interface {
	Sync(ctx context.Context, opts syncer.Options) *syncer.Result
}

// options holds configuration options for the catalog service
type options struct {
	client upstream.Client
	lister Lister
	sync   Syncer
	index  Index
	tracer trace.Tracer
}

// Option is a functional option for configuring the catalog service
type Option func(*options) error

// WithUpstreamClient sets the upstream feed client used for get-by-id
func WithUpstreamClient(client upstream.Client) Option {
	return func(o *options) error {
		if client == nil {
			return fmt.Errorf("upstream client is required")
		}
		o.client = client
		return nil
	}
}

// WithListingEngine sets the paginated listing engine
func WithListingEngine(lister Lister) Option {
	return func(o *options) error {
		if lister == nil {
			return fmt.Errorf("listing engine is required")
		}
		o.lister = lister
		return nil
	}
}

// WithSyncEngine sets the sync engine
func WithSyncEngine(sync Syncer) Option {
	return func(o *options) error {
		if sync == nil {
			return fmt.Errorf("sync engine is required")
		}
		o.sync = sync
		return nil
	}
}

// WithIndex sets the persistent index backing store reads
func WithIndex(index Index) Option {
	return func(o *options) error {
		if index == nil {
			return fmt.Errorf("index is required")
		}
		o.index = index
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the catalog service.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// catalogService implements the CatalogService interface
type catalogService struct {
	client upstream.Client
	lister Lister
	sync   Syncer
	index  Index
	tracer trace.Tracer
}

var _ service.CatalogService = (*catalogService)(nil)

// New creates a catalog service with the given options
func New(opts ...Option) (service.CatalogService, error) {
	o := &options{}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return &catalogService{
		client: o.client,
		lister: o.lister,
		sync:   o.sync,
		index:  o.index,
		tracer: o.tracer,
	}, nil
}

func (s *catalogService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.StartSpan(ctx, s.tracer, name)
}

// CheckReadiness checks if the service is ready to serve requests
func (s *catalogService) CheckReadiness(ctx context.Context) error {
	return s.index.Ping(ctx)
}

// ListServers returns one page of upstream servers
func (s *catalogService) ListServers(
	ctx context.Context,
	opts ...service.Option[service.ListServersOptions],
) (*service.ListServersResult, error) {
	ctx, span := s.startSpan(ctx, "catalogService.ListServers")
	defer span.End()

	options := &service.ListServersOptions{
		Limit:   service.DefaultPageSize, // default limit
		Version: "latest",
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			err = fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
			otel.RecordError(span, err)
			return nil, err
		}
	}

	// Cap the limit at service.MaxPageSize to prevent potential DoS
	if options.Limit > service.MaxPageSize {
		options.Limit = service.MaxPageSize
	}

	span.SetAttributes(
		otel.AttrPageSize.Int(options.Limit),
		otel.AttrHasCursor.Bool(options.Cursor != ""),
		otel.AttrListingMode.String(s.lister.Mode()),
	)
	if options.Search != "" {
		span.SetAttributes(otel.AttrSearchTerm.String(options.Search))
	}

	slog.DebugContext(ctx, "ListServers query",
		"limit", options.Limit,
		"search", options.Search,
		"mode", s.lister.Mode(),
		"request_id", middleware.GetReqID(ctx))

	page, err := s.lister.List(ctx, listing.Params{
		Cursor:  options.Cursor,
		Limit:   options.Limit,
		Search:  options.Search,
		Version: options.Version,
	})
	if err != nil {
		if errors.Is(err, listing.ErrBadCursor) {
			err = fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
		}
		otel.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(page.Servers)))
	slog.DebugContext(ctx, "ListServers completed",
		"count", len(page.Servers),
		"has_more", page.NextCursor != "",
		"request_id", middleware.GetReqID(ctx))

	return &service.ListServersResult{
		Servers:    page.Servers,
		NextCursor: page.NextCursor,
	}, nil
}

// GetServer resolves a single server by identity key
func (s *catalogService) GetServer(
	ctx context.Context,
	opts ...service.Option[service.GetServerOptions],
) (*upstream.ServerEntity, error) {
	ctx, span := s.startSpan(ctx, "catalogService.GetServer")
	defer span.End()

	options := &service.GetServerOptions{}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			err = fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
			otel.RecordError(span, err)
			return nil, err
		}
	}

	// Validation happens before any fetch
	if options.ID == "" {
		err := fmt.Errorf("%w: id is required", service.ErrInvalidRequest)
		otel.RecordError(span, err)
		return nil, err
	}

	name, version := record.ParseID(options.ID)
	span.SetAttributes(otel.AttrServerName.String(name))
	if version != "" {
		span.SetAttributes(otel.AttrServerVersion.String(version))
	}

	entity, err := s.client.GetServer(ctx, name, version)
	if err != nil {
		if upstream.IsNotFound(err) {
			err = fmt.Errorf("%w: %s", service.ErrNotFound, options.ID)
		}
		otel.RecordError(span, err)
		return nil, err
	}

	return entity, nil
}

// Sync walks the upstream feed and upserts surviving entries. The result is
// returned even when the run ends in a fatal fetch error.
func (s *catalogService) Sync(
	ctx context.Context,
	opts ...service.Option[service.SyncOptions],
) (*syncer.Result, error) {
	ctx, span := s.startSpan(ctx, "catalogService.Sync")
	defer span.End()

	options := &service.SyncOptions{}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			err = fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
			otel.RecordError(span, err)
			return nil, err
		}
	}

	if options.RegistryURL != "" {
		span.SetAttributes(otel.AttrRegistryURL.String(options.RegistryURL))
	}

	result := s.sync.Sync(ctx, syncer.Options{
		RegistryURL:     options.RegistryURL,
		MaxApps:         options.MaxApps,
		OnlyWithRemotes: options.OnlyWithRemotes,
	})

	span.SetAttributes(
		otel.AttrSyncedCount.Int(result.Synced),
		otel.AttrSkippedCount.Int(result.Skipped),
		otel.AttrErrorCount.Int(result.Errors),
	)

	run := store.SyncRun{
		RegistryURL:  result.RegistryURL,
		StartedAt:    result.StartedAt,
		EndedAt:      result.EndedAt,
		SyncedCount:  int64(result.Synced),
		SkippedCount: int64(result.Skipped),
		ErrorCount:   int64(result.Errors),
	}
	if len(result.ErrorMessages) > 0 {
		run.LastError = result.ErrorMessages[len(result.ErrorMessages)-1]
	}
	if err := s.index.RecordSyncRun(ctx, run); err != nil {
		// The run itself succeeded; losing the summary row is not fatal
		slog.WarnContext(ctx, "Failed to record sync run",
			"error", err,
			"request_id", middleware.GetReqID(ctx))
	}

	slog.InfoContext(ctx, "Sync run finished",
		"synced", result.Synced,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"duration_ms", result.DurationMs,
		"request_id", middleware.GetReqID(ctx))

	return result, nil
}

// ListEntries returns a page of indexed records from the store
func (s *catalogService) ListEntries(
	ctx context.Context,
	opts ...service.Option[service.ListEntriesOptions],
) (*service.ListEntriesResult, error) {
	ctx, span := s.startSpan(ctx, "catalogService.ListEntries")
	defer span.End()

	options := &service.ListEntriesOptions{
		Limit: service.DefaultPageSize, // default limit
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			err = fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
			otel.RecordError(span, err)
			return nil, err
		}
	}

	// Cap the limit at service.MaxPageSize to prevent potential DoS
	if options.Limit > service.MaxPageSize {
		options.Limit = service.MaxPageSize
	}

	span.SetAttributes(otel.AttrPageSize.Int(options.Limit))

	entries, total, err := s.index.ListPaged(ctx, store.Filters{
		Search:     options.Search,
		LatestOnly: options.LatestOnly,
	}, options.Limit, options.Offset)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(entries)))
	return &service.ListEntriesResult{
		Entries: entries,
		Total:   total,
	}, nil
}

// GetEntry returns a single indexed record by identity key. A bare name
// without a version resolves to the newest row marked latest by upstream.
func (s *catalogService) GetEntry(ctx context.Context, id string) (*record.IndexedRecord, error) {
	ctx, span := s.startSpan(ctx, "catalogService.GetEntry")
	defer span.End()

	if id == "" {
		err := fmt.Errorf("%w: id is required", service.ErrInvalidRequest)
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrEntryID.String(id))

	var rec *record.IndexedRecord
	var err error
	if name, version := record.ParseID(id); version == "" {
		rec, err = s.index.GetByName(ctx, name, true)
	} else {
		rec, err = s.index.GetByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: %s", service.ErrNotFound, id)
		}
		otel.RecordError(span, err)
		return nil, err
	}

	return rec, nil
}

// GetSyncStatus returns the most recent persisted sync run summary
func (s *catalogService) GetSyncStatus(ctx context.Context) (*service.SyncRunInfo, error) {
	ctx, span := s.startSpan(ctx, "catalogService.GetSyncStatus")
	defer span.End()

	run, err := s.index.LatestSyncRun(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: no sync run recorded", service.ErrNotFound)
		}
		otel.RecordError(span, err)
		return nil, err
	}

	return &service.SyncRunInfo{
		RegistryURL:  run.RegistryURL,
		StartedAt:    run.StartedAt,
		EndedAt:      run.EndedAt,
		SyncedCount:  run.SyncedCount,
		SkippedCount: run.SkippedCount,
		ErrorCount:   run.ErrorCount,
		LastError:    run.LastError,
	}, nil
}
