// Package syncer walks the upstream catalog feed and writes surviving
// entries into the local index.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcpindex/registry-proxy/internal/config"
	"github.com/mcpindex/registry-proxy/internal/policy"
	"github.com/mcpindex/registry-proxy/internal/record"
	"github.com/mcpindex/registry-proxy/internal/upstream"
)

// Store is the write surface the engine needs from the index
type Store interface {
	Upsert(ctx context.Context, rec record.IndexedRecord) error
}

// ClientFactory builds an upstream client for the given base URL. The engine
// creates one client per run so that a per-run registry URL override does not
// leak into other runs.
type ClientFactory func(baseURL string) upstream.Client

// Options are the per-run knobs for a sync
type Options struct {
	// RegistryURL overrides the configured upstream URL for this run.
	// Empty means the configured default.
	RegistryURL string

	// MaxApps caps the total number of entities written in this run.
	// Zero means no cap. Reaching the cap stops the whole run.
	MaxApps int

	// OnlyWithRemotes skips entities without remote endpoints
	OnlyWithRemotes bool
}

// Result summarizes one sync run. It is returned even when the run ends in a
// fatal fetch error, with partial counts and the failure as the last message.
type Result struct {
	Synced        int       `json:"synced"`
	Skipped       int       `json:"skipped"`
	Errors        int       `json:"errors"`
	DurationMs    int64     `json:"durationMs"`
	ErrorMessages []string  `json:"errorMessages,omitempty"`
	RegistryURL   string    `json:"registryUrl"`
	StartedAt     time.Time `json:"startedAt"`
	EndedAt       time.Time `json:"endedAt"`
}

// Engine performs strictly sequential sync runs: one page at a time, one
// entity at a time, in upstream order. Runs are idempotent by upsert
// semantics; there are no retries.
type Engine struct {
	defaultURL string
	newClient  ClientFactory
	policy     *policy.Policy
	nameFilter *policy.NameFilter
	store      Store
}

// New creates a sync engine. defaultURL is the registry used when a run does
// not override it; nameFilter may be nil to disable include/exclude filtering.
func New(
	defaultURL string,
	newClient ClientFactory,
	pol *policy.Policy,
	nameFilter *policy.NameFilter,
	store Store,
) *Engine {
	return &Engine{
		defaultURL: defaultURL,
		newClient:  newClient,
		policy:     pol,
		nameFilter: nameFilter,
		store:      store,
	}
}

// Sync walks the upstream feed page by page and upserts every entity that
// survives the exclusion policy. Per-entity failures are recorded and the
// walk continues; a page fetch failure ends the run with partial counts.
func (e *Engine) Sync(ctx context.Context, opts Options) *Result {
	started := time.Now()

	registryURL := opts.RegistryURL
	if registryURL == "" {
		registryURL = e.defaultURL
	}
	// Records synced from a custom registry never carry the official marker
	isOfficial := registryURL == config.DefaultRegistryURL

	result := &Result{
		RegistryURL: registryURL,
		StartedAt:   started,
	}
	defer func() {
		result.EndedAt = time.Now()
		result.DurationMs = result.EndedAt.Sub(started).Milliseconds()
	}()

	slog.InfoContext(ctx, "Sync started",
		"registry_url", registryURL,
		"max_apps", opts.MaxApps,
		"only_with_remotes", opts.OnlyWithRemotes)

	client := e.newClient(registryURL)
	policyOpts := policy.Options{OnlyWithRemotes: opts.OnlyWithRemotes}

	cursor := ""
	for {
		page, err := client.ListServers(ctx, upstream.ListParams{
			Cursor:  cursor,
			Limit:   upstream.MaxPageLimit,
			Version: "latest",
		})
		if err != nil {
			result.Errors++
			result.ErrorMessages = append(result.ErrorMessages,
				fmt.Sprintf("Fatal sync error: %v", err))
			slog.ErrorContext(ctx, "Sync aborted on page fetch",
				"registry_url", registryURL,
				"cursor", cursor,
				"error", err)
			return result
		}

		for _, entity := range page.Servers {
			if opts.MaxApps > 0 && result.Synced >= opts.MaxApps {
				slog.InfoContext(ctx, "Sync stopped at max apps cap",
					"max_apps", opts.MaxApps)
				return result
			}

			e.syncEntity(ctx, entity, policyOpts, isOfficial, result)
		}

		if page.Metadata.NextCursor == "" {
			break
		}
		cursor = page.Metadata.NextCursor
	}

	slog.InfoContext(ctx, "Sync completed",
		"registry_url", registryURL,
		"synced", result.Synced,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"duration_ms", time.Since(started).Milliseconds())

	return result
}

// syncEntity applies filtering and writes one entity. Per-entity failures
// only update the counters; the walk always continues.
func (e *Engine) syncEntity(
	ctx context.Context,
	entity *upstream.ServerEntity,
	policyOpts policy.Options,
	isOfficial bool,
	result *Result,
) {
	if skip, reason := e.policy.ShouldSkip(entity, policyOpts); skip {
		result.Skipped++
		slog.DebugContext(ctx, "Entity skipped",
			"name", entity.Name,
			"reason", reason)
		return
	}

	if e.nameFilter != nil {
		if include, reason := e.nameFilter.ShouldInclude(entity.Name); !include {
			result.Skipped++
			slog.DebugContext(ctx, "Entity filtered out",
				"name", entity.Name,
				"reason", reason)
			return
		}
	}

	rec := record.FromEntity(entity, isOfficial, time.Now())
	if err := e.store.Upsert(ctx, rec); err != nil {
		result.Errors++
		result.ErrorMessages = append(result.ErrorMessages,
			fmt.Sprintf("Error syncing %s: %v", entity.Name, err))
		slog.WarnContext(ctx, "Entity sync failed",
			"name", entity.Name,
			"error", err)
		return
	}

	result.Synced++
}
