package listing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcpindex/registry-proxy/internal/policy"
	"github.com/mcpindex/registry-proxy/internal/upstream"
)

// dynamicMinPageSize is the smallest page requested from upstream in dynamic
// mode, regardless of the caller's limit. Over-fetching compensates for
// entries removed by the exclusion policy.
const dynamicMinPageSize = 30

// listDynamic pages through a non-canonical registry using the upstream's
// own opaque cursor. Upstream pages are filtered through the same exclusion
// policy as sync; the engine keeps pulling pages until it has a full page of
// survivors or upstream is exhausted.
func (e *Engine) listDynamic(ctx context.Context, params Params) (*Page, error) {
	fetchSize := params.Limit
	if fetchSize < dynamicMinPageSize {
		fetchSize = dynamicMinPageSize
	}

	var survivors []*upstream.ServerEntity
	cursor := params.Cursor
	nextCursor := ""

	for len(survivors) < params.Limit {
		resp, err := e.client.ListServers(ctx, upstream.ListParams{
			Cursor:  cursor,
			Limit:   fetchSize,
			Search:  params.Search,
			Version: params.Version,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch upstream page: %w", err)
		}

		for _, entity := range resp.Servers {
			if skip, reason := e.policy.ShouldSkip(entity, policy.Options{}); skip {
				slog.DebugContext(ctx, "Entity excluded from listing",
					"name", entity.Name,
					"reason", reason)
				continue
			}
			survivors = append(survivors, entity)
		}

		nextCursor = resp.Metadata.NextCursor
		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	if len(survivors) > params.Limit {
		survivors = survivors[:params.Limit]
	}

	return &Page{Servers: survivors, NextCursor: nextCursor}, nil
}
