// Package listing serves paginated pages of upstream catalog entries.
package listing

import (
	"context"
	"errors"

	"github.com/mcpindex/registry-proxy/internal/config"
	"github.com/mcpindex/registry-proxy/internal/policy"
	"github.com/mcpindex/registry-proxy/internal/upstream"
)

// ErrBadCursor is returned when a cursor cannot be interpreted by the
// active pagination strategy
var ErrBadCursor = errors.New("invalid cursor")

// Mode names, used for logging and tracing
const (
	ModeAllowList = "allowlist"
	ModeDynamic   = "dynamic"
)

// Params are the inputs for one listing page
type Params struct {
	// Cursor is a plain integer offset in allow-list mode, or the
	// upstream's opaque token in dynamic mode. Empty starts from the top.
	Cursor string

	// Limit is the page size, already validated by the caller
	Limit int

	// Search narrows results to names containing this term,
	// case-insensitively. Empty means no narrowing.
	Search string

	// Version selects which version of each entry to serve
	Version string
}

// Page is one page of listing results. NextCursor is empty when the list is
// exhausted; its absence is the only end-of-list signal.
type Page struct {
	Servers    []*upstream.ServerEntity
	NextCursor string
}

// Engine serves listing pages from the upstream feed. The strategy is fixed
// by the registry URL the engine was built with: the canonical registry is
// served from a static allow-list, any other registry pages through the
// upstream's own cursor.
type Engine struct {
	client  upstream.Client
	policy  *policy.Policy
	allowed []string
	dynamic bool
}

// New creates a listing engine for the given registry. allowedNames overrides
// the embedded default allow-list when non-empty; it is only consulted for
// the canonical registry.
func New(registryURL string, client upstream.Client, pol *policy.Policy, allowedNames []string) *Engine {
	e := &Engine{
		client:  client,
		policy:  pol,
		dynamic: registryURL != config.DefaultRegistryURL,
	}
	if !e.dynamic {
		e.allowed = allowedNames
		if len(e.allowed) == 0 {
			e.allowed = DefaultAllowedNames()
		}
	}
	return e
}

// Mode returns the active pagination strategy name
func (e *Engine) Mode() string {
	if e.dynamic {
		return ModeDynamic
	}
	return ModeAllowList
}

// List returns one page of entries. A page either succeeds as a whole or
// fails with a transport error; in allow-list mode individual entries whose
// fetch fails are dropped from the page without failing it.
func (e *Engine) List(ctx context.Context, params Params) (*Page, error) {
	if e.dynamic {
		return e.listDynamic(ctx, params)
	}
	return e.listAllowed(ctx, params)
}
