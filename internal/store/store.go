// Package store persists indexed catalog records in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcpindex/registry-proxy/internal/db/sqlc"
	"github.com/mcpindex/registry-proxy/internal/record"
	"github.com/mcpindex/registry-proxy/internal/versions"
)

// ErrNotFound is returned when no row matches the requested identity key or name
var ErrNotFound = errors.New("entry not found")

// Filters narrows a paged listing of indexed records. Nil pointer fields
// leave the corresponding column unconstrained.
type Filters struct {
	// Search matches names containing the given substring, case-insensitively
	Search     string
	LatestOnly *bool
	HasRemotes *bool
	IsOfficial *bool
}

// SyncRun is the persisted summary of one sync engine run
type SyncRun struct {
	RegistryURL  string
	StartedAt    time.Time
	EndedAt      time.Time
	SyncedCount  int64
	SkippedCount int64
	ErrorCount   int64
	LastError    string
}

// Store provides keyed upsert and read access to the catalog index.
// Rows are never deleted; re-syncing the same identity key overwrites in place.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store backed by the given pgx pool. The caller retains
// ownership of the pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping verifies the underlying database connection
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Upsert writes a record under its identity key, overwriting any previous
// row for the same key. The stored synced_at never moves backwards.
func (s *Store) Upsert(ctx context.Context, rec record.IndexedRecord) error {
	querier := sqlc.New(s.pool)
	if _, err := querier.UpsertCatalogEntry(ctx, upsertParams(rec)); err != nil {
		return fmt.Errorf("failed to upsert entry %s: %w", rec.ID, err)
	}
	return nil
}

// GetByID returns the record stored under the given identity key.
// Returns ErrNotFound if no row matches.
func (s *Store) GetByID(ctx context.Context, id string) (*record.IndexedRecord, error) {
	querier := sqlc.New(s.pool)
	row, err := querier.GetCatalogEntryByEntryID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get entry %s: %w", id, err)
	}
	rec := rowToRecord(row)
	return &rec, nil
}

// GetByName returns a record for the given name. With latestOnly it prefers
// rows marked latest by upstream; when several rows carry the marker (a
// staleness window between syncs) the newest version wins, compared as
// semver with a lexicographic fallback. Rows are never mutated to resolve
// the conflict. Returns ErrNotFound if the name has no rows at all.
func (s *Store) GetByName(ctx context.Context, name string, latestOnly bool) (*record.IndexedRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.WarnContext(ctx, "Failed to rollback transaction", "error", err)
		}
	}()

	querier := sqlc.New(tx)
	rows, err := querier.ListCatalogEntryVersionsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions for %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	rec := rowToRecord(selectVersion(rows, latestOnly))
	return &rec, nil
}

// selectVersion picks the single row a name resolves to. With latestOnly,
// rows marked latest by upstream are preferred; several rows may carry the
// marker during the staleness window between syncs, in which case the
// newest version wins. Callers guarantee a non-empty slice.
func selectVersion(rows []sqlc.CatalogEntry, latestOnly bool) sqlc.CatalogEntry {
	if !latestOnly {
		return pickNewest(rows)
	}

	marked := make([]sqlc.CatalogEntry, 0, len(rows))
	for _, row := range rows {
		if row.IsLatest {
			marked = append(marked, row)
		}
	}
	// Fall back to all versions when upstream has not marked any row yet
	if len(marked) == 0 {
		marked = rows
	}
	return pickNewest(marked)
}

// ListPaged returns a page of records matching the filters, ordered by
// (name, version), along with the total match count.
func (s *Store) ListPaged(
	ctx context.Context,
	filters Filters,
	limit, offset int,
) ([]record.IndexedRecord, int64, error) {
	params := sqlc.ListCatalogEntriesParams{
		IsLatest:   filters.LatestOnly,
		HasRemotes: filters.HasRemotes,
		IsOfficial: filters.IsOfficial,
		Size:       int32(limit),
		PageOffset: int32(offset),
	}
	if filters.Search != "" {
		params.Search = &filters.Search
	}

	querier := sqlc.New(s.pool)
	rows, err := querier.ListCatalogEntries(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list entries: %w", err)
	}

	var total int64
	records := make([]record.IndexedRecord, 0, len(rows))
	for _, row := range rows {
		total = row.TotalCount
		records = append(records, rowToRecord(row.CatalogEntry))
	}

	return records, total, nil
}

// RecordSyncRun persists the summary of a completed sync run
func (s *Store) RecordSyncRun(ctx context.Context, run SyncRun) error {
	params := sqlc.InsertSyncRunParams{
		RegistryUrl:  run.RegistryURL,
		StartedAt:    run.StartedAt,
		EndedAt:      run.EndedAt,
		SyncedCount:  run.SyncedCount,
		SkippedCount: run.SkippedCount,
		ErrorCount:   run.ErrorCount,
	}
	if run.LastError != "" {
		params.LastError = &run.LastError
	}

	querier := sqlc.New(s.pool)
	if _, err := querier.InsertSyncRun(ctx, params); err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

// LatestSyncRun returns the most recently started sync run summary.
// Returns ErrNotFound if no run has been recorded yet.
func (s *Store) LatestSyncRun(ctx context.Context) (*SyncRun, error) {
	querier := sqlc.New(s.pool)
	row, err := querier.GetLatestSyncRun(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no sync runs recorded", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest sync run: %w", err)
	}

	run := &SyncRun{
		RegistryURL:  row.RegistryUrl,
		StartedAt:    row.StartedAt,
		EndedAt:      row.EndedAt,
		SyncedCount:  row.SyncedCount,
		SkippedCount: row.SkippedCount,
		ErrorCount:   row.ErrorCount,
	}
	if row.LastError != nil {
		run.LastError = *row.LastError
	}
	return run, nil
}

// pickNewest returns the row with the highest version among candidates.
// Callers guarantee a non-empty slice.
func pickNewest(rows []sqlc.CatalogEntry) sqlc.CatalogEntry {
	newest := rows[0]
	for _, row := range rows[1:] {
		if versions.IsNewerVersion(row.Version, newest.Version) {
			newest = row
		}
	}
	return newest
}
