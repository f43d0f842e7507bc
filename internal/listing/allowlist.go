package listing

import (
	"context"
	_ "embed"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mcpindex/registry-proxy/internal/upstream"
)

//go:embed allowlist.txt
var defaultAllowList string

// DefaultAllowedNames returns the embedded default allow-list in its
// published order. The order is load-bearing: cursors are offsets into it.
func DefaultAllowedNames() []string {
	lines := strings.Split(defaultAllowList, "\n")
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names
}

// listAllowed pages through the static allow-list. The cursor is a plain
// integer offset into the filtered list; the list is never re-sorted at
// serve time, so pages are deterministic and entries never split across
// pages. The only loss is an individual fetch failure, which drops the
// entry silently.
func (e *Engine) listAllowed(ctx context.Context, params Params) (*Page, error) {
	offset := 0
	if params.Cursor != "" {
		parsed, err := strconv.Atoi(params.Cursor)
		if err != nil || parsed < 0 {
			return nil, ErrBadCursor
		}
		offset = parsed
	}

	names := e.allowed
	if params.Search != "" {
		term := strings.ToLower(params.Search)
		filtered := make([]string, 0, len(names))
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), term) {
				filtered = append(filtered, name)
			}
		}
		names = filtered
	}

	if offset >= len(names) {
		return &Page{Servers: []*upstream.ServerEntity{}}, nil
	}

	end := offset + params.Limit
	if end > len(names) {
		end = len(names)
	}
	slice := names[offset:end]

	// One fetch per slice entry; a failed fetch leaves a nil slot rather
	// than failing the page.
	results := make([]*upstream.ServerEntity, len(slice))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, name := range slice {
		group.Go(func() error {
			entity, err := e.client.GetServer(groupCtx, name, params.Version)
			if err != nil {
				slog.DebugContext(groupCtx, "Allow-list entry dropped",
					"name", name,
					"error", err)
				return nil
			}
			results[i] = entity
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	servers := make([]*upstream.ServerEntity, 0, len(results))
	for _, entity := range results {
		if entity != nil {
			servers = append(servers, entity)
		}
	}

	page := &Page{Servers: servers}
	if end < len(names) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}
