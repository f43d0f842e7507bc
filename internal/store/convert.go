package store

import (
	"encoding/json"

	"github.com/mcpindex/registry-proxy/internal/db/sqlc"
	"github.com/mcpindex/registry-proxy/internal/record"
)

// upsertParams maps an IndexedRecord onto the upsert query parameters.
// Empty optional strings are stored as NULL.
func upsertParams(rec record.IndexedRecord) sqlc.UpsertCatalogEntryParams {
	return sqlc.UpsertCatalogEntryParams{
		EntryID:       rec.ID,
		Name:          rec.Name,
		Version:       rec.Version,
		Description:   optionalText(rec.Description),
		RepositoryUrl: optionalText(rec.RepositoryURL),
		WebsiteUrl:    optionalText(rec.WebsiteURL),
		Packages:      rec.Packages,
		Remotes:       rec.Remotes,
		Icons:         rec.Icons,
		Meta:          rec.Meta,
		HasRemotes:    rec.HasRemotes,
		HasPackages:   rec.HasPackages,
		HasIcons:      rec.HasIcons,
		HasRepository: rec.HasRepository,
		HasWebsite:    rec.HasWebsite,
		IsLatest:      rec.IsLatest,
		IsOfficial:    rec.IsOfficial,
		PublishedAt:   rec.PublishedAt,
		UpdatedAt:     rec.UpdatedAt,
		SyncedAt:      rec.SyncedAt,
	}
}

// rowToRecord maps a database row back into the flattened record form
func rowToRecord(row sqlc.CatalogEntry) record.IndexedRecord {
	return record.IndexedRecord{
		ID:            row.EntryID,
		Name:          row.Name,
		Version:       row.Version,
		Description:   textOrEmpty(row.Description),
		RepositoryURL: textOrEmpty(row.RepositoryUrl),
		WebsiteURL:    textOrEmpty(row.WebsiteUrl),
		Packages:      json.RawMessage(row.Packages),
		Remotes:       json.RawMessage(row.Remotes),
		Icons:         json.RawMessage(row.Icons),
		Meta:          json.RawMessage(row.Meta),
		HasRemotes:    row.HasRemotes,
		HasPackages:   row.HasPackages,
		HasIcons:      row.HasIcons,
		HasRepository: row.HasRepository,
		HasWebsite:    row.HasWebsite,
		IsLatest:      row.IsLatest,
		IsOfficial:    row.IsOfficial,
		PublishedAt:   row.PublishedAt,
		UpdatedAt:     row.UpdatedAt,
		SyncedAt:      row.SyncedAt,
	}
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func textOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
