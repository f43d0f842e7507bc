package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameFilterShouldInclude(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		serverName string
		include    []string
		exclude    []string
		expected   bool
	}{
		// No filters specified - default include
		{
			name:       "no filters - should include",
			serverName: "io.github.example/any",
			include:    []string{},
			exclude:    []string{},
			expected:   true,
		},
		{
			name:       "nil filters - should include",
			serverName: "io.github.example/any",
			include:    nil,
			exclude:    nil,
			expected:   true,
		},
		// Include-only patterns
		{
			name:       "exact match include",
			serverName: "io.github.example/postgres",
			include:    []string{"io.github.example/postgres"},
			expected:   true,
		},
		{
			name:       "glob pattern include match",
			serverName: "io.github.example/postgres",
			include:    []string{"io.github.example/*"},
			expected:   true,
		},
		{
			name:       "glob matches across slashes",
			serverName: "io.github.example/nested/path",
			include:    []string{"io.github.example/*"},
			expected:   true,
		},
		{
			name:       "include pattern no match",
			serverName: "io.github.other/redis",
			include:    []string{"io.github.example/*", "io.github.corp/*"},
			expected:   false,
		},
		// Exclude-only patterns
		{
			name:       "exclude pattern match",
			serverName: "io.github.example/server-experimental",
			exclude:    []string{"*-experimental", "*-deprecated"},
			expected:   false,
		},
		{
			name:       "exclude pattern no match",
			serverName: "io.github.example/server-stable",
			exclude:    []string{"*-experimental", "*-deprecated"},
			expected:   true,
		},
		// Both include and exclude - exclude takes precedence
		{
			name:       "exclude takes precedence over include",
			serverName: "io.github.example/postgres-experimental",
			include:    []string{"io.github.example/*"},
			exclude:    []string{"*-experimental"},
			expected:   false,
		},
		{
			name:       "include match with non-matching exclude",
			serverName: "io.github.example/postgres-stable",
			include:    []string{"io.github.example/*"},
			exclude:    []string{"*-experimental"},
			expected:   true,
		},
		// Invalid patterns fail closed
		{
			name:       "invalid include pattern excludes",
			serverName: "io.github.example/files",
			include:    []string{"[", "io.github.example/*"},
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			filter := NewNameFilter(tt.include, tt.exclude)
			got, reason := filter.ShouldInclude(tt.serverName)
			assert.Equal(t, tt.expected, got)
			assert.NotEmpty(t, reason)
		})
	}
}
