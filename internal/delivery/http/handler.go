package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloudmatch/backend/internal/catalog"
	"github.com/cloudmatch/backend/internal/domain"
)

// SearchService is the slice of the search usecase the handlers need
type SearchService interface {
	Search(ctx context.Context, req *domain.SearchQuery) (*domain.SearchResponse, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search  SearchService
	store   domain.CacheStore
	catalog *catalog.Catalog
}

// NewHandler creates a new HTTP handler
func NewHandler(search SearchService, store domain.CacheStore, cat *catalog.Catalog) *Handler {
	return &Handler{search: search, store: store, catalog: cat}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cloudmatch-backend",
		"version": "1.0.0",
	})
}

// Search handles marketplace search requests
func (h *Handler) Search(c *gin.Context) {
	var req domain.SearchQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vendor is required"})
		return
	}

	resp, err := h.search.Search(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidQuery):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Vendors lists all catalog vendors
func (h *Handler) Vendors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"vendors": h.catalog.Vendors()})
}

// Solutions lists the solutions for one vendor
func (h *Handler) Solutions(c *gin.Context) {
	vendor := c.Param("vendor")
	solutions, err := h.catalog.SolutionsFor(vendor)
	if err != nil {
		if errors.Is(err, domain.ErrVendorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor": vendor, "solutions": solutions})
}

// CacheInspect lists current cache entries
func (h *Handler) CacheInspect(c *gin.Context) {
	entries, err := h.store.Inspect(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache unavailable"})
		return
	}
	if entries == nil {
		entries = []domain.CacheEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// CacheClear removes all cache entries
func (h *Handler) CacheClear(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
