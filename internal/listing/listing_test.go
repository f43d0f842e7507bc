package listing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpindex/registry-proxy/internal/config"
	"github.com/mcpindex/registry-proxy/internal/policy"
	"github.com/mcpindex/registry-proxy/internal/upstream"
)

// fakeClient resolves entities by name and serves canned list pages.
type fakeClient struct {
	mu        sync.Mutex
	entities  map[string]*upstream.ServerEntity
	getErrs   map[string]error
	pages     map[string]*upstream.ListResponse
	pageErrs  map[string]error
	getCalls  []string
	listCalls []upstream.ListParams
}

func (c *fakeClient) ListServers(_ context.Context, params upstream.ListParams) (*upstream.ListResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listCalls = append(c.listCalls, params)
	if err, ok := c.pageErrs[params.Cursor]; ok {
		return nil, err
	}
	if page, ok := c.pages[params.Cursor]; ok {
		return page, nil
	}
	return &upstream.ListResponse{}, nil
}

func (c *fakeClient) GetServer(_ context.Context, name, _ string) (*upstream.ServerEntity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls = append(c.getCalls, name)
	if err, ok := c.getErrs[name]; ok {
		return nil, err
	}
	if entity, ok := c.entities[name]; ok {
		return entity, nil
	}
	return nil, upstream.NewHTTPError(404, "http://test/"+name, "not found")
}

func entity(name string) *upstream.ServerEntity {
	return &upstream.ServerEntity{Name: name, Version: "1.0.0"}
}

func names(page *Page) []string {
	out := make([]string, 0, len(page.Servers))
	for _, s := range page.Servers {
		out = append(out, s.Name)
	}
	return out
}

func newPolicy(t *testing.T, blacklist []string) *policy.Policy {
	t.Helper()
	pol, err := policy.New(blacklist, nil)
	require.NoError(t, err)
	return pol
}

func TestModeSelection(t *testing.T) {
	t.Parallel()
	pol := newPolicy(t, nil)

	canonical := New(config.DefaultRegistryURL, &fakeClient{}, pol, nil)
	assert.Equal(t, ModeAllowList, canonical.Mode())

	custom := New("https://mirror.example.com", &fakeClient{}, pol, nil)
	assert.Equal(t, ModeDynamic, custom.Mode())
}

func TestDefaultAllowedNames(t *testing.T) {
	t.Parallel()
	defaults := DefaultAllowedNames()
	assert.NotEmpty(t, defaults)
	for _, name := range defaults {
		assert.NotEmpty(t, name)
		assert.NotContains(t, name, "#")
	}
}

func TestListAllowed(t *testing.T) {
	t.Parallel()
	allowed := []string{
		"io.github.alpha/files",
		"io.github.alpha/git",
		"io.github.beta/time",
		"io.github.gamma/fetch",
	}

	newClient := func() *fakeClient {
		entities := make(map[string]*upstream.ServerEntity, len(allowed))
		for _, name := range allowed {
			entities[name] = entity(name)
		}
		return &fakeClient{entities: entities}
	}

	t.Run("first_page_with_next_cursor", func(t *testing.T) {
		t.Parallel()
		engine := New(config.DefaultRegistryURL, newClient(), newPolicy(t, nil), allowed)

		page, err := engine.List(context.Background(), Params{Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, allowed[:3], names(page))
		assert.Equal(t, "3", page.NextCursor)
	})

	t.Run("cursor_resumes_where_the_page_ended", func(t *testing.T) {
		t.Parallel()
		engine := New(config.DefaultRegistryURL, newClient(), newPolicy(t, nil), allowed)

		page, err := engine.List(context.Background(), Params{Cursor: "3", Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, allowed[3:], names(page))
		assert.Empty(t, page.NextCursor)
	})

	t.Run("exact_boundary_has_no_next_cursor", func(t *testing.T) {
		t.Parallel()
		engine := New(config.DefaultRegistryURL, newClient(), newPolicy(t, nil), allowed)

		page, err := engine.List(context.Background(), Params{Limit: 4})
		require.NoError(t, err)
		assert.Len(t, page.Servers, 4)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("offset_past_end_yields_empty_page", func(t *testing.T) {
		t.Parallel()
		engine := New(config.DefaultRegistryURL, newClient(), newPolicy(t, nil), allowed)

		page, err := engine.List(context.Background(), Params{Cursor: "100", Limit: 3})
		require.NoError(t, err)
		assert.Empty(t, page.Servers)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("search_narrows_before_pagination", func(t *testing.T) {
		t.Parallel()
		engine := New(config.DefaultRegistryURL, newClient(), newPolicy(t, nil), allowed)

		page, err := engine.List(context.Background(), Params{Limit: 1, Search: "ALPHA"})
		require.NoError(t, err)
		assert.Equal(t, []string{"io.github.alpha/files"}, names(page))
		// The cursor is an offset into the narrowed list.
		assert.Equal(t, "1", page.NextCursor)

		page, err = engine.List(context.Background(), Params{Cursor: "1", Limit: 1, Search: "ALPHA"})
		require.NoError(t, err)
		assert.Equal(t, []string{"io.github.alpha/git"}, names(page))
		assert.Empty(t, page.NextCursor)
	})

	t.Run("failed_fetches_are_dropped_silently", func(t *testing.T) {
		t.Parallel()
		client := newClient()
		client.getErrs = map[string]error{
			"io.github.alpha/git": fmt.Errorf("upstream timeout"),
		}
		engine := New(config.DefaultRegistryURL, client, newPolicy(t, nil), allowed)

		page, err := engine.List(context.Background(), Params{Limit: 3})
		require.NoError(t, err)
		// The failed entry is dropped; order of the rest is preserved and
		// the cursor still advances past the full slice.
		assert.Equal(t, []string{"io.github.alpha/files", "io.github.beta/time"}, names(page))
		assert.Equal(t, "3", page.NextCursor)
	})

	t.Run("version_is_forwarded", func(t *testing.T) {
		t.Parallel()
		client := newClient()
		engine := New(config.DefaultRegistryURL, client, newPolicy(t, nil), allowed)

		_, err := engine.List(context.Background(), Params{Limit: 2, Version: "1.0.0"})
		require.NoError(t, err)
		assert.Len(t, client.getCalls, 2)
	})

	tests := []struct {
		name   string
		cursor string
	}{
		{name: "non_numeric_cursor", cursor: "abc"},
		{name: "negative_cursor", cursor: "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine := New(config.DefaultRegistryURL, newClient(), newPolicy(t, nil), allowed)
			_, err := engine.List(context.Background(), Params{Cursor: tt.cursor, Limit: 3})
			require.ErrorIs(t, err, ErrBadCursor)
		})
	}
}

func TestListDynamic(t *testing.T) {
	t.Parallel()
	const mirror = "https://mirror.example.com"

	t.Run("filters_and_returns_upstream_cursor", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{
			pages: map[string]*upstream.ListResponse{
				"": {
					Servers: []*upstream.ServerEntity{
						entity("io.github.example/files"),
						entity("io.github.banned/spam"),
						entity("io.github.example/git"),
					},
					Metadata: upstream.ListMetadata{NextCursor: "tok1", Count: 3},
				},
			},
		}
		engine := New(mirror, client, newPolicy(t, []string{"io.github.banned/*"}), nil)

		page, err := engine.List(context.Background(), Params{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"io.github.example/files", "io.github.example/git"}, names(page))
		assert.Equal(t, "tok1", page.NextCursor)
	})

	t.Run("pulls_more_pages_until_limit_is_met", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{
			pages: map[string]*upstream.ListResponse{
				"": {
					Servers: []*upstream.ServerEntity{
						entity("io.github.banned/one"),
						entity("io.github.example/files"),
					},
					Metadata: upstream.ListMetadata{NextCursor: "tok1", Count: 2},
				},
				"tok1": {
					Servers: []*upstream.ServerEntity{
						entity("io.github.example/git"),
					},
					Metadata: upstream.ListMetadata{NextCursor: "tok2", Count: 1},
				},
			},
		}
		engine := New(mirror, client, newPolicy(t, []string{"io.github.banned/*"}), nil)

		page, err := engine.List(context.Background(), Params{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"io.github.example/files", "io.github.example/git"}, names(page))
		assert.Equal(t, "tok2", page.NextCursor)
		assert.Len(t, client.listCalls, 2)
	})

	t.Run("stops_on_upstream_exhaustion", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{
			pages: map[string]*upstream.ListResponse{
				"": {
					Servers:  []*upstream.ServerEntity{entity("io.github.example/files")},
					Metadata: upstream.ListMetadata{Count: 1},
				},
			},
		}
		engine := New(mirror, client, newPolicy(t, nil), nil)

		page, err := engine.List(context.Background(), Params{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"io.github.example/files"}, names(page))
		assert.Empty(t, page.NextCursor)
	})

	t.Run("over_fetches_small_limits", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{
			pages: map[string]*upstream.ListResponse{
				"": {
					Servers:  []*upstream.ServerEntity{entity("io.github.example/files")},
					Metadata: upstream.ListMetadata{Count: 1},
				},
			},
		}
		engine := New(mirror, client, newPolicy(t, nil), nil)

		_, err := engine.List(context.Background(), Params{Limit: 1})
		require.NoError(t, err)
		require.Len(t, client.listCalls, 1)
		assert.Equal(t, dynamicMinPageSize, client.listCalls[0].Limit)
	})

	t.Run("trims_survivors_to_limit", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{
			pages: map[string]*upstream.ListResponse{
				"": {
					Servers: []*upstream.ServerEntity{
						entity("io.github.example/a"),
						entity("io.github.example/b"),
						entity("io.github.example/c"),
					},
					Metadata: upstream.ListMetadata{NextCursor: "tok1", Count: 3},
				},
			},
		}
		engine := New(mirror, client, newPolicy(t, nil), nil)

		page, err := engine.List(context.Background(), Params{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page.Servers, 2)
		assert.Equal(t, "tok1", page.NextCursor)
	})

	t.Run("page_fetch_error_fails_the_page", func(t *testing.T) {
		t.Parallel()
		client := &fakeClient{
			pageErrs: map[string]error{"": fmt.Errorf("upstream unavailable")},
		}
		engine := New(mirror, client, newPolicy(t, nil), nil)

		_, err := engine.List(context.Background(), Params{Limit: 2})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch upstream page")
	})
}
