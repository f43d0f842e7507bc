package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpindex/registry-proxy/internal/config"
	"github.com/mcpindex/registry-proxy/internal/policy"
	"github.com/mcpindex/registry-proxy/internal/record"
	"github.com/mcpindex/registry-proxy/internal/upstream"
)

// fakeClient serves canned pages keyed by cursor.
type fakeClient struct {
	pages     map[string]*upstream.ListResponse
	pageErrs  map[string]error
	listCalls []upstream.ListParams
}

func (c *fakeClient) ListServers(_ context.Context, params upstream.ListParams) (*upstream.ListResponse, error) {
	c.listCalls = append(c.listCalls, params)
	if err, ok := c.pageErrs[params.Cursor]; ok {
		return nil, err
	}
	page, ok := c.pages[params.Cursor]
	if !ok {
		return &upstream.ListResponse{}, nil
	}
	return page, nil
}

func (c *fakeClient) GetServer(context.Context, string, string) (*upstream.ServerEntity, error) {
	return nil, fmt.Errorf("not implemented")
}

// fakeStore records upserts and fails for configured names. Rows are keyed
// by identity key so repeated upserts overwrite rather than accumulate.
type fakeStore struct {
	upserted []record.IndexedRecord
	rows     map[string]record.IndexedRecord
	failFor  map[string]error
}

func (s *fakeStore) Upsert(_ context.Context, rec record.IndexedRecord) error {
	if err, ok := s.failFor[rec.Name]; ok {
		return err
	}
	s.upserted = append(s.upserted, rec)
	if s.rows == nil {
		s.rows = map[string]record.IndexedRecord{}
	}
	s.rows[rec.ID] = rec
	return nil
}

func entity(name, version string) *upstream.ServerEntity {
	return &upstream.ServerEntity{Name: name, Version: version}
}

func newTestEngine(t *testing.T, client *fakeClient, store *fakeStore, nameFilter *policy.NameFilter) *Engine {
	t.Helper()
	pol, err := policy.New([]string{"io.github.banned/*"}, nil)
	require.NoError(t, err)
	factory := func(string) upstream.Client { return client }
	return New(config.DefaultRegistryURL, factory, pol, nameFilter, store)
}

func TestSyncWalksAllPages(t *testing.T) {
	t.Parallel()
	client := &fakeClient{
		pages: map[string]*upstream.ListResponse{
			"": {
				Servers:  []*upstream.ServerEntity{entity("io.github.example/files", "1.0.0")},
				Metadata: upstream.ListMetadata{NextCursor: "page2", Count: 1},
			},
			"page2": {
				Servers:  []*upstream.ServerEntity{entity("io.github.example/git", "2.0.0")},
				Metadata: upstream.ListMetadata{Count: 1},
			},
		},
	}
	store := &fakeStore{}
	engine := newTestEngine(t, client, store, nil)

	result := engine.Sync(context.Background(), Options{})

	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Errors)
	assert.Empty(t, result.ErrorMessages)
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))
	assert.Equal(t, config.DefaultRegistryURL, result.RegistryURL)
	require.Len(t, store.upserted, 2)

	// Pages are requested strictly in sequence with the latest-version filter.
	require.Len(t, client.listCalls, 2)
	assert.Equal(t, "", client.listCalls[0].Cursor)
	assert.Equal(t, "page2", client.listCalls[1].Cursor)
	for _, call := range client.listCalls {
		assert.Equal(t, upstream.MaxPageLimit, call.Limit)
		assert.Equal(t, "latest", call.Version)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	t.Parallel()
	client := &fakeClient{
		pages: map[string]*upstream.ListResponse{
			"": {
				Servers: []*upstream.ServerEntity{
					entity("io.github.example/files", "1.0.0"),
					entity("io.github.example/git", "2.0.0"),
				},
				Metadata: upstream.ListMetadata{Count: 2},
			},
		},
	}
	store := &fakeStore{}
	engine := newTestEngine(t, client, store, nil)

	first := engine.Sync(context.Background(), Options{})
	second := engine.Sync(context.Background(), Options{})

	assert.Equal(t, 2, first.Synced)
	assert.Equal(t, 2, second.Synced)

	// Re-syncing the same feed overwrites under the same identity keys
	// instead of growing the index.
	assert.Len(t, store.upserted, 4)
	require.Len(t, store.rows, 2)
	assert.Contains(t, store.rows, "io.github.example/files:1.0.0")
	assert.Contains(t, store.rows, "io.github.example/git:2.0.0")
}

func TestSyncMaxAppsCapStopsRun(t *testing.T) {
	t.Parallel()
	client := &fakeClient{
		pages: map[string]*upstream.ListResponse{
			"": {
				Servers: []*upstream.ServerEntity{
					entity("io.github.example/a", "1.0.0"),
					entity("io.github.example/b", "1.0.0"),
					entity("io.github.example/c", "1.0.0"),
				},
				Metadata: upstream.ListMetadata{NextCursor: "page2", Count: 3},
			},
		},
	}
	store := &fakeStore{}
	engine := newTestEngine(t, client, store, nil)

	result := engine.Sync(context.Background(), Options{MaxApps: 1})

	assert.Equal(t, 1, result.Synced)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "io.github.example/a", store.upserted[0].Name)
	// The cap ends the run; the second page is never fetched.
	assert.Len(t, client.listCalls, 1)
}

func TestSyncSkipsAndErrorsDoNotStopTheWalk(t *testing.T) {
	t.Parallel()
	client := &fakeClient{
		pages: map[string]*upstream.ListResponse{
			"": {
				Servers: []*upstream.ServerEntity{
					entity("io.github.banned/spam", "1.0.0"),
					entity("io.github.example/broken", "1.0.0"),
					entity("io.github.example/good", "1.0.0"),
				},
				Metadata: upstream.ListMetadata{Count: 3},
			},
		},
	}
	store := &fakeStore{
		failFor: map[string]error{
			"io.github.example/broken": errors.New("connection reset"),
		},
	}
	engine := newTestEngine(t, client, store, nil)

	result := engine.Sync(context.Background(), Options{})

	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.ErrorMessages, 1)
	assert.Equal(t, "Error syncing io.github.example/broken: connection reset", result.ErrorMessages[0])
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "io.github.example/good", store.upserted[0].Name)
}

func TestSyncFatalPageError(t *testing.T) {
	t.Parallel()
	client := &fakeClient{
		pages: map[string]*upstream.ListResponse{
			"": {
				Servers:  []*upstream.ServerEntity{entity("io.github.example/files", "1.0.0")},
				Metadata: upstream.ListMetadata{NextCursor: "page2", Count: 1},
			},
		},
		pageErrs: map[string]error{
			"page2": errors.New("upstream unavailable"),
		},
	}
	store := &fakeStore{}
	engine := newTestEngine(t, client, store, nil)

	result := engine.Sync(context.Background(), Options{})

	// Partial progress from the first page is kept.
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Errors)
	require.Len(t, result.ErrorMessages, 1)
	assert.Equal(t, "Fatal sync error: upstream unavailable", result.ErrorMessages[0])
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))
	assert.False(t, result.EndedAt.IsZero())
}

func TestSyncOnlyWithRemotes(t *testing.T) {
	t.Parallel()
	withRemotes := entity("io.github.example/remote", "1.0.0")
	withRemotes.Remotes = json.RawMessage(`[{"type":"sse","url":"https://mcp.example.com"}]`)

	client := &fakeClient{
		pages: map[string]*upstream.ListResponse{
			"": {
				Servers: []*upstream.ServerEntity{
					withRemotes,
					entity("io.github.example/local", "1.0.0"),
				},
				Metadata: upstream.ListMetadata{Count: 2},
			},
		},
	}
	store := &fakeStore{}
	engine := newTestEngine(t, client, store, nil)

	result := engine.Sync(context.Background(), Options{OnlyWithRemotes: true})

	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "io.github.example/remote", store.upserted[0].Name)
}

func TestSyncNameFilter(t *testing.T) {
	t.Parallel()
	client := &fakeClient{
		pages: map[string]*upstream.ListResponse{
			"": {
				Servers: []*upstream.ServerEntity{
					entity("io.github.corp/tool", "1.0.0"),
					entity("io.github.other/tool", "1.0.0"),
				},
				Metadata: upstream.ListMetadata{Count: 2},
			},
		},
	}
	store := &fakeStore{}
	nameFilter := policy.NewNameFilter([]string{"io.github.corp/*"}, nil)
	engine := newTestEngine(t, client, store, nameFilter)

	result := engine.Sync(context.Background(), Options{})

	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "io.github.corp/tool", store.upserted[0].Name)
}

func TestSyncOfficialMarker(t *testing.T) {
	t.Parallel()
	client := &fakeClient{
		pages: map[string]*upstream.ListResponse{
			"": {
				Servers:  []*upstream.ServerEntity{entity("io.github.example/files", "1.0.0")},
				Metadata: upstream.ListMetadata{Count: 1},
			},
		},
	}

	t.Run("canonical_registry", func(t *testing.T) {
		store := &fakeStore{}
		engine := newTestEngine(t, client, store, nil)
		engine.Sync(context.Background(), Options{})
		require.Len(t, store.upserted, 1)
		assert.True(t, store.upserted[0].IsOfficial)
	})

	t.Run("custom_registry_override", func(t *testing.T) {
		store := &fakeStore{}
		engine := newTestEngine(t, client, store, nil)
		result := engine.Sync(context.Background(), Options{RegistryURL: "https://mirror.example.com"})
		assert.Equal(t, "https://mirror.example.com", result.RegistryURL)
		require.Len(t, store.upserted, 1)
		assert.False(t, store.upserted[0].IsOfficial)
	})
}
