package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sulu/sulu-sub013/models"
	"github.com/sulu/sulu-sub013/resourcelocator"
)

// ResourceLocatorHandler handles resource locator HTTP requests
type ResourceLocatorHandler struct {
	strategy *resourcelocator.Strategy
}

// NewResourceLocatorHandler creates a new ResourceLocatorHandler instance
func NewResourceLocatorHandler(strategy *resourcelocator.Strategy) *ResourceLocatorHandler {
	return &ResourceLocatorHandler{strategy: strategy}
}

// Generate returns a free resource locator for the given parts
func (h *ResourceLocatorHandler) Generate(c *gin.Context) {
	var req models.GenerateRequest
	if !bind(c, &req) {
		return
	}

	path, err := h.strategy.Generate(c.Request.Context(), resourcelocator.GenerateInput{
		Parts:       req.Parts,
		ParentPath:  req.ParentPath,
		ParentID:    req.ParentID,
		Scope:       req.Scope,
		Locale:      req.Locale,
		TemplateKey: req.TemplateKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ResourceLocator{ResourceLocator: path})
}

// Resolve looks up the node behind a resource locator
func (h *ResourceLocatorHandler) Resolve(c *gin.Context) {
	scope, path := c.Query("scope"), c.Query("path")
	if scope == "" || path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope and path are required"})
		return
	}

	resolution, err := h.strategy.Resolve(c.Request.Context(), scope, path)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolution)
}

// Restore re-activates an archived resource locator
func (h *ResourceLocatorHandler) Restore(c *gin.Context) {
	var req models.RestoreRequest
	if !bind(c, &req) {
		return
	}

	path, err := h.strategy.Restore(c.Request.Context(), req.Path, req.Scope, req.Locale, req.AuthorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ResourceLocator{ResourceLocator: path})
}

// Delete removes an archived resource locator
func (h *ResourceLocatorHandler) Delete(c *gin.Context) {
	path, scope, locale := c.Query("path"), c.Query("scope"), c.Query("locale")
	if path == "" || scope == "" || locale == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path, scope and locale are required"})
		return
	}

	if err := h.strategy.Delete(c.Request.Context(), path, scope, locale); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// History lists the archived resource locators of a node
func (h *ResourceLocatorHandler) History(c *gin.Context) {
	scope, locale := c.Query("scope"), c.Query("locale")
	if scope == "" || locale == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope and locale are required"})
		return
	}

	entries, err := h.strategy.GetHistory(c.Request.Context(), c.Param("id"), scope, locale)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewHistory(entries))
}
