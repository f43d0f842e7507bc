// Package record maps upstream catalog entities into flattened, indexable records.
package record

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/mcpindex/registry-proxy/internal/upstream"
)

// IDSeparator joins name and version into the identity key. Names may not
// themselves contain a colon that conflicts with version separation; this is
// an upstream-format assumption, not enforced here.
const IDSeparator = ":"

// IndexedRecord is the persisted, flattened form of one (name, version)
// catalog entity. The identity key is immutable once created; re-syncing the
// same entity always targets the same row.
type IndexedRecord struct {
	ID            string
	Name          string
	Version       string
	Description   string
	RepositoryURL string
	WebsiteURL    string

	// Opaque upstream blobs, stored and forwarded, never interpreted.
	Packages json.RawMessage
	Remotes  json.RawMessage
	Icons    json.RawMessage
	Meta     json.RawMessage

	// Derived booleans, computed once at transform time.
	HasRemotes    bool
	HasPackages   bool
	HasIcons      bool
	HasRepository bool
	HasWebsite    bool

	// IsLatest is copied verbatim from upstream; it is advisory and may be
	// temporarily stale if upstream changes which version is latest between
	// syncs.
	IsLatest bool

	// IsOfficial is true iff no custom upstream URL was configured for the
	// sync that produced this row.
	IsOfficial bool

	PublishedAt *time.Time
	UpdatedAt   *time.Time
	SyncedAt    time.Time
}

// FormatID builds the identity key for a (name, version) pair.
func FormatID(name, version string) string {
	return name + IDSeparator + version
}

// ParseID splits an identity key into name and version by cutting on the
// first separator only. A key without a separator yields an empty version,
// meaning "latest known".
func ParseID(id string) (name, version string) {
	name, version, _ = strings.Cut(id, IDSeparator)
	return name, version
}

// FromEntity transforms an upstream entity into an IndexedRecord. It is total:
// missing optional fields map to null or empty defaults, never to an error.
func FromEntity(entity *upstream.ServerEntity, isOfficial bool, now time.Time) IndexedRecord {
	rec := IndexedRecord{
		ID:          FormatID(entity.Name, entity.Version),
		Name:        entity.Name,
		Version:     entity.Version,
		Description: entity.Description,
		WebsiteURL:  entity.WebsiteURL,
		Packages:    entity.Packages,
		Remotes:     entity.Remotes,
		Icons:       entity.Icons,
		HasRemotes:  entity.HasRemotes(),
		HasPackages: entity.HasPackages(),
		HasIcons:    entity.HasIcons(),
		HasWebsite:  entity.WebsiteURL != "",
		IsOfficial:  isOfficial,
		SyncedAt:    now,
	}

	if entity.Repository != nil && entity.Repository.URL != "" {
		rec.RepositoryURL = entity.Repository.URL
		rec.HasRepository = true
	}

	if meta := entity.Meta; meta != nil {
		rec.Meta = meta.Raw
		if official := meta.Official; official != nil {
			rec.IsLatest = official.IsLatest
			rec.PublishedAt = parseTimestamp(official.PublishedAt)
			rec.UpdatedAt = parseTimestamp(official.UpdatedAt)
		}
	}

	return rec
}

// parseTimestamp parses an upstream RFC3339 timestamp. Malformed or absent
// values map to nil rather than an error.
func parseTimestamp(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}
