package policy

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// NameFilter applies include/exclude glob patterns to entity names during
// sync, on top of the exclusion policy.
type NameFilter struct {
	include []string
	exclude []string
}

// NewNameFilter creates a NameFilter from include and exclude pattern lists.
// Either list may be empty.
func NewNameFilter(include, exclude []string) *NameFilter {
	return &NameFilter{include: include, exclude: exclude}
}

// matchPattern matches a glob pattern against a name, supporting matching across slashes.
// Uses gobwas/glob which supports * matching across path separators, unlike filepath.Match.
func matchPattern(pattern, name string) (bool, error) {
	// First try filepath.Match for validation (it will catch invalid patterns)
	_, err := filepath.Match(pattern, "test")
	if err != nil {
		return false, err
	}

	// Use gobwas/glob which supports matching across slashes.
	// Passing no separators allows * to match across any characters including /
	compiled, err := glob.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid glob pattern: %v", err)
	}

	return compiled.Match(name), nil
}

// ShouldInclude determines if an entity name passes the filter.
//
// Logic:
// 1. If exclude patterns are specified and name matches any exclude pattern -> exclude (exclude takes precedence)
// 2. If include patterns are specified and name matches any include pattern -> include
// 3. If include patterns are specified and name doesn't match any -> exclude
// 4. If only exclude patterns are specified (no include) and name doesn't match exclude -> include
// 5. If no patterns are specified -> include (default behavior)
func (f *NameFilter) ShouldInclude(name string) (bool, string) {
	// Check exclude patterns first (exclude takes precedence)
	for _, pattern := range f.exclude {
		matches, err := matchPattern(pattern, name)
		if err != nil {
			return false, fmt.Sprintf("invalid exclude pattern '%s': %v", pattern, err)
		}
		if matches {
			return false, fmt.Sprintf("excluded by pattern '%s'", pattern)
		}
	}

	// If include patterns are specified, name must match at least one
	if len(f.include) > 0 {
		for _, pattern := range f.include {
			matches, err := matchPattern(pattern, name)
			if err != nil {
				return false, fmt.Sprintf("invalid include pattern '%s': %v", pattern, err)
			}
			if matches {
				return true, fmt.Sprintf("included by pattern '%s'", pattern)
			}
		}
		// Include patterns specified but no match found
		return false, fmt.Sprintf("no match found in include patterns %v", f.include)
	}

	// No include patterns specified (or empty), and didn't match exclude patterns
	if len(f.exclude) > 0 {
		return true, fmt.Sprintf("no match in exclude patterns %v", f.exclude)
	}
	return true, "no name filters specified"
}
