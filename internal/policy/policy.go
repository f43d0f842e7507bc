// Package policy decides whether a catalog entity is indexable.
package policy

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mcpindex/registry-proxy/internal/upstream"
)

// Options are the per-run knobs that influence the skip decision.
type Options struct {
	// OnlyWithRemotes skips entities whose remotes list is empty or absent.
	OnlyWithRemotes bool
}

// Policy is a pure, deterministic predicate over catalog entities. It is
// constructed from immutable configuration owned by the caller; there is no
// process-wide mutable state.
type Policy struct {
	blacklist      map[string]struct{}
	blacklistGlobs []compiledPattern
	keywords       []string
}

type compiledPattern struct {
	pattern  string
	compiled glob.Glob
}

// DefaultDeniedKeywords are the substrings that mark placeholder or throwaway
// entries not worth indexing. Matching is case-insensitive.
var DefaultDeniedKeywords = []string{
	"placeholder",
	"test-server",
	"my-server",
	"demo-",
	"example-",
}

// New creates a Policy from a blacklist and a denied-keyword list. Blacklist
// entries containing glob metacharacters are compiled as patterns; plain names
// match exactly. Invalid patterns are rejected.
func New(blacklist, deniedKeywords []string) (*Policy, error) {
	p := &Policy{
		blacklist: make(map[string]struct{}, len(blacklist)),
		keywords:  make([]string, 0, len(deniedKeywords)),
	}

	for _, entry := range blacklist {
		if strings.ContainsAny(entry, "*?[") {
			compiled, err := glob.Compile(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid blacklist pattern %q: %w", entry, err)
			}
			p.blacklistGlobs = append(p.blacklistGlobs, compiledPattern{pattern: entry, compiled: compiled})
			continue
		}
		p.blacklist[entry] = struct{}{}
	}

	for _, kw := range deniedKeywords {
		p.keywords = append(p.keywords, strings.ToLower(kw))
	}

	return p, nil
}

// ShouldSkip reports whether the entity must be excluded from indexing, and
// the reason when it is. The clauses are independent; their order does not
// affect the outcome.
func (p *Policy) ShouldSkip(entity *upstream.ServerEntity, opts Options) (bool, string) {
	if _, ok := p.blacklist[entity.Name]; ok {
		return true, "name is blacklisted"
	}

	for _, pat := range p.blacklistGlobs {
		if pat.compiled.Match(entity.Name) {
			return true, fmt.Sprintf("name matches blacklist pattern %q", pat.pattern)
		}
	}

	lowerName := strings.ToLower(entity.Name)
	for _, kw := range p.keywords {
		if strings.Contains(lowerName, kw) {
			return true, fmt.Sprintf("name contains denied keyword %q", kw)
		}
	}

	if opts.OnlyWithRemotes && !entity.HasRemotes() {
		return true, "entity has no remotes"
	}

	return false, ""
}
