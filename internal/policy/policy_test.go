package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpindex/registry-proxy/internal/upstream"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid_patterns", func(t *testing.T) {
		t.Parallel()
		p, err := New([]string{"io.github.spam/exact", "io.github.spam/*"}, nil)
		require.NoError(t, err)
		require.NotNil(t, p)
	})

	t.Run("invalid_pattern", func(t *testing.T) {
		t.Parallel()
		_, err := New([]string{"io.github.spam/["}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid blacklist pattern")
	})
}

func TestShouldSkip(t *testing.T) {
	t.Parallel()

	pol, err := New(
		[]string{"io.github.banned/server", "io.github.spam/*"},
		[]string{"placeholder", "DEMO-"},
	)
	require.NoError(t, err)

	remotes := json.RawMessage(`[{"type":"sse","url":"https://mcp.example.com"}]`)

	tests := []struct {
		name       string
		entity     *upstream.ServerEntity
		opts       Options
		wantSkip   bool
		wantReason string
	}{
		{
			name:       "exact_blacklist_match",
			entity:     &upstream.ServerEntity{Name: "io.github.banned/server", Remotes: remotes},
			wantSkip:   true,
			wantReason: "name is blacklisted",
		},
		{
			name:       "glob_blacklist_match",
			entity:     &upstream.ServerEntity{Name: "io.github.spam/anything", Remotes: remotes},
			wantSkip:   true,
			wantReason: `name matches blacklist pattern "io.github.spam/*"`,
		},
		{
			name:       "denied_keyword_case_insensitive",
			entity:     &upstream.ServerEntity{Name: "io.github.example/demo-server", Remotes: remotes},
			wantSkip:   true,
			wantReason: `name contains denied keyword "demo-"`,
		},
		{
			name:       "denied_keyword_substring",
			entity:     &upstream.ServerEntity{Name: "io.github.example/my-PLACEHOLDER-thing", Remotes: remotes},
			wantSkip:   true,
			wantReason: `name contains denied keyword "placeholder"`,
		},
		{
			name:       "only_with_remotes_skips_remoteless",
			entity:     &upstream.ServerEntity{Name: "io.github.example/local-only"},
			opts:       Options{OnlyWithRemotes: true},
			wantSkip:   true,
			wantReason: "entity has no remotes",
		},
		{
			name:     "only_with_remotes_keeps_remoted",
			entity:   &upstream.ServerEntity{Name: "io.github.example/remote", Remotes: remotes},
			opts:     Options{OnlyWithRemotes: true},
			wantSkip: false,
		},
		{
			name:     "remoteless_kept_by_default",
			entity:   &upstream.ServerEntity{Name: "io.github.example/local-only"},
			wantSkip: false,
		},
		{
			name:     "clean_entity_passes",
			entity:   &upstream.ServerEntity{Name: "io.github.example/files", Remotes: remotes},
			wantSkip: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			skip, reason := pol.ShouldSkip(tt.entity, tt.opts)
			assert.Equal(t, tt.wantSkip, skip)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestShouldSkipIsDeterministic(t *testing.T) {
	t.Parallel()
	pol, err := New([]string{"io.github.spam/*"}, []string{"placeholder"})
	require.NoError(t, err)

	entity := &upstream.ServerEntity{Name: "io.github.spam/placeholder"}
	firstSkip, firstReason := pol.ShouldSkip(entity, Options{})
	for i := 0; i < 10; i++ {
		skip, reason := pol.ShouldSkip(entity, Options{})
		assert.Equal(t, firstSkip, skip)
		assert.Equal(t, firstReason, reason)
	}
}
