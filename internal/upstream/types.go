// Package upstream provides the HTTP client for the upstream catalog registry API.
// API format: /v0/servers (paginated list) and /v0/servers/{name} (single entity).
package upstream

import "encoding/json"

// ServerEntity is one upstream (name, version) server descriptor as returned by
// the registry API. Packages, remotes, icons and meta are stored as opaque,
// order-preserving JSON blobs; the core never interprets them.
type ServerEntity struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description,omitempty"`
	Repository  *Repository     `json:"repository,omitempty"`
	WebsiteURL  string          `json:"websiteUrl,omitempty"`
	Packages    json.RawMessage `json:"packages,omitempty"`
	Remotes     json.RawMessage `json:"remotes,omitempty"`
	Icons       json.RawMessage `json:"icons,omitempty"`
	Meta        *ServerMeta     `json:"_meta,omitempty"`
}

// Repository describes the source repository of a server entity.
type Repository struct {
	URL       string `json:"url"`
	Source    string `json:"source,omitempty"`
	ID        string `json:"id,omitempty"`
	Subfolder string `json:"subfolder,omitempty"`
}

// ServerMeta carries upstream-supplied registry metadata for an entity.
type ServerMeta struct {
	Official *OfficialMeta `json:"io.modelcontextprotocol.registry/official,omitempty"`
	// Raw preserves the full metadata blob as received, including fields this
	// server does not model.
	Raw json.RawMessage `json:"-"`
}

// OfficialMeta is the upstream registry's per-entity bookkeeping block.
type OfficialMeta struct {
	IsLatest    bool    `json:"isLatest"`
	PublishedAt *string `json:"publishedAt,omitempty"`
	UpdatedAt   *string `json:"updatedAt,omitempty"`
	Status      string  `json:"status,omitempty"`
}

// UnmarshalJSON decodes the metadata block while preserving the raw bytes.
func (m *ServerMeta) UnmarshalJSON(data []byte) error {
	type alias ServerMeta
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = ServerMeta(a)
	m.Raw = append([]byte(nil), data...)
	return nil
}

// MarshalJSON re-emits the preserved raw bytes when present so round-trips do
// not drop unmodeled fields.
func (m *ServerMeta) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	type alias ServerMeta
	return json.Marshal((*alias)(m))
}

// HasRemotes reports whether the entity has a non-empty remotes list.
func (e *ServerEntity) HasRemotes() bool {
	return jsonArrayNonEmpty(e.Remotes)
}

// HasPackages reports whether the entity has a non-empty packages list.
func (e *ServerEntity) HasPackages() bool {
	return jsonArrayNonEmpty(e.Packages)
}

// HasIcons reports whether the entity has a non-empty icons list.
func (e *ServerEntity) HasIcons() bool {
	return jsonArrayNonEmpty(e.Icons)
}

// jsonArrayNonEmpty reports whether raw holds a JSON array with at least one
// element. Anything unparseable counts as empty.
func jsonArrayNonEmpty(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return false
	}
	return len(arr) > 0
}

// ListResponse is the paginated response envelope for /v0/servers.
type ListResponse struct {
	Servers  []*ServerEntity `json:"servers"`
	Metadata ListMetadata    `json:"metadata"`
}

// ListMetadata carries the pagination state of a list response.
type ListMetadata struct {
	NextCursor string `json:"next_cursor,omitempty"`
	Count      int    `json:"count"`
}

// ListParams are the query parameters accepted by the upstream list endpoint.
// The upstream search parameter is a single flat substring match.
type ListParams struct {
	Cursor  string
	Limit   int
	Search  string
	Version string
}
