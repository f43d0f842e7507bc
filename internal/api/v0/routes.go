// Package v0 provides the REST API handlers for catalog access.
package v0

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mcpindex/registry-proxy/internal/api/common"
	"github.com/mcpindex/registry-proxy/internal/record"
	"github.com/mcpindex/registry-proxy/internal/search"
	"github.com/mcpindex/registry-proxy/internal/service"
	"github.com/mcpindex/registry-proxy/internal/upstream"
	"github.com/mcpindex/registry-proxy/internal/versions"
)

// SyncRequest is the body of the sync trigger endpoint
type SyncRequest struct {
	RegistryURL     string `json:"registryUrl,omitempty"`
	MaxApps         int    `json:"maxApps,omitempty"`
	OnlyWithRemotes bool   `json:"onlyWithRemotes,omitempty"`
}

// EntryResponse is the JSON form of one indexed record
type EntryResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Version       string          `json:"version"`
	Description   string          `json:"description,omitempty"`
	RepositoryURL string          `json:"repositoryUrl,omitempty"`
	WebsiteURL    string          `json:"websiteUrl,omitempty"`
	Packages      json.RawMessage `json:"packages,omitempty"`
	Remotes       json.RawMessage `json:"remotes,omitempty"`
	Icons         json.RawMessage `json:"icons,omitempty"`
	Meta          json.RawMessage `json:"_meta,omitempty"`
	HasRemotes    bool            `json:"hasRemotes"`
	HasPackages   bool            `json:"hasPackages"`
	HasIcons      bool            `json:"hasIcons"`
	HasRepository bool            `json:"hasRepository"`
	HasWebsite    bool            `json:"hasWebsite"`
	IsLatest      bool            `json:"isLatest"`
	IsOfficial    bool            `json:"isOfficial"`
	PublishedAt   *time.Time      `json:"publishedAt,omitempty"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
	SyncedAt      time.Time       `json:"syncedAt"`
}

// EntryListResponse is the paged listing of indexed records
type EntryListResponse struct {
	Entries []EntryResponse `json:"entries"`
	Total   int64           `json:"total"`
}

// Routes defines the routes for the catalog API with dependency injection
type Routes struct {
	service service.CatalogService
}

// NewRoutes creates a new Routes instance with the provided service
func NewRoutes(svc service.CatalogService) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates a new router for the catalog API
func Router(svc service.CatalogService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	// Server names contain slashes, so the id segment is a wildcard
	r.Get("/servers", routes.listServers)
	r.Get("/servers/*", routes.getServer)

	r.Post("/sync", routes.triggerSync)
	r.Get("/sync/status", routes.getSyncStatus)

	r.Get("/index/entries", routes.listEntries)
	r.Get("/index/entries/*", routes.getEntry)

	return r
}

// listServers handles GET /api/v0/servers
func (routes *Routes) listServers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	opts := []service.Option[service.ListServersOptions]{}
	if cursor := query.Get("cursor"); cursor != "" {
		opts = append(opts, service.WithCursor(cursor))
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			common.WriteErrorResponse(w, "Invalid limit parameter: must be an integer", http.StatusBadRequest)
			return
		}
		opts = append(opts, service.WithLimit[service.ListServersOptions](limit))
	}
	if version := query.Get("version"); version != "" {
		opts = append(opts, service.WithVersion(version))
	}

	// The where parameter carries a JSON expression tree; only its first
	// leaf value is usable as an upstream search term.
	if where := query.Get("where"); where != "" {
		expr, err := search.Parse(where)
		if err != nil {
			common.WriteErrorResponse(w, "Invalid where parameter: "+err.Error(), http.StatusBadRequest)
			return
		}
		if term, ok := search.ExtractTerm(expr); ok {
			opts = append(opts, service.WithSearch[service.ListServersOptions](term))
		}
	}

	result, err := routes.service.ListServers(r.Context(), opts...)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	resp := upstream.ListResponse{
		Servers: result.Servers,
		Metadata: upstream.ListMetadata{
			NextCursor: result.NextCursor,
			Count:      len(result.Servers),
		},
	}
	common.WriteJSONResponse(w, resp, http.StatusOK)
}

// getServer handles GET /api/v0/servers/{id}
func (routes *Routes) getServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")

	entity, err := routes.service.GetServer(r.Context(), service.WithID(id))
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	common.WriteJSONResponse(w, entity, http.StatusOK)
}

// triggerSync handles POST /api/v0/sync
func (routes *Routes) triggerSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.WriteErrorResponse(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	opts := []service.Option[service.SyncOptions]{}
	if req.RegistryURL != "" {
		opts = append(opts, service.WithRegistryURL(req.RegistryURL))
	}
	if req.MaxApps > 0 {
		opts = append(opts, service.WithMaxApps(req.MaxApps))
	}
	if req.OnlyWithRemotes {
		opts = append(opts, service.WithOnlyWithRemotes())
	}

	result, err := routes.service.Sync(r.Context(), opts...)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	// The summary is returned even when the run ended in a fatal fetch
	// error; Errors>0 and the last message describe the cause.
	common.WriteJSONResponse(w, result, http.StatusOK)
}

// getSyncStatus handles GET /api/v0/sync/status
func (routes *Routes) getSyncStatus(w http.ResponseWriter, r *http.Request) {
	info, err := routes.service.GetSyncStatus(r.Context())
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	common.WriteJSONResponse(w, info, http.StatusOK)
}

// listEntries handles GET /api/v0/index/entries
func (routes *Routes) listEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	opts := []service.Option[service.ListEntriesOptions]{}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			common.WriteErrorResponse(w, "Invalid limit parameter: must be an integer", http.StatusBadRequest)
			return
		}
		opts = append(opts, service.WithLimit[service.ListEntriesOptions](limit))
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			common.WriteErrorResponse(w, "Invalid offset parameter: must be an integer", http.StatusBadRequest)
			return
		}
		opts = append(opts, service.WithOffset(offset))
	}
	if searchTerm := query.Get("search"); searchTerm != "" {
		opts = append(opts, service.WithSearch[service.ListEntriesOptions](searchTerm))
	}
	if latestStr := query.Get("latest"); latestStr != "" {
		latest, err := strconv.ParseBool(latestStr)
		if err != nil {
			common.WriteErrorResponse(w, "Invalid latest parameter: must be a boolean", http.StatusBadRequest)
			return
		}
		opts = append(opts, service.WithLatestOnly(latest))
	}

	result, err := routes.service.ListEntries(r.Context(), opts...)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	entries := make([]EntryResponse, len(result.Entries))
	for i, rec := range result.Entries {
		entries[i] = entryResponse(rec)
	}

	common.WriteJSONResponse(w, EntryListResponse{
		Entries: entries,
		Total:   result.Total,
	}, http.StatusOK)
}

// getEntry handles GET /api/v0/index/entries/{id}
func (routes *Routes) getEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")

	rec, err := routes.service.GetEntry(r.Context(), id)
	if err != nil {
		common.WriteServiceError(w, err)
		return
	}

	common.WriteJSONResponse(w, entryResponse(*rec), http.StatusOK)
}

func entryResponse(rec record.IndexedRecord) EntryResponse {
	return EntryResponse{
		ID:            rec.ID,
		Name:          rec.Name,
		Version:       rec.Version,
		Description:   rec.Description,
		RepositoryURL: rec.RepositoryURL,
		WebsiteURL:    rec.WebsiteURL,
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

// HealthRouter creates a router for health check endpoints
func HealthRouter(svc service.CatalogService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessHandler handles readiness check requests
func readinessHandler(svc service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
			common.WriteErrorResponse(w, "Service not ready", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// versionHandler handles version requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
