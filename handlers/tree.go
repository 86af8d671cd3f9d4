package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sulu/sulu-sub013/content"
	"github.com/sulu/sulu-sub013/models"
	"github.com/sulu/sulu-sub013/repository"
)

// TreeHandler handles content tree HTTP requests
type TreeHandler struct {
	nodes *content.NodeRepository
}

// NewTreeHandler creates a new TreeHandler instance
func NewTreeHandler(nodes *content.NodeRepository) *TreeHandler {
	return &TreeHandler{
		nodes: nodes,
	}
}

// BuildTreeFromNodes converts a list of sibling nodes
func BuildTreeFromNodes(nodes []*repository.Node, locale string) []*models.Node {
	result := make([]*models.Node, 0, len(nodes))
	for _, node := range nodes {
		result = append(result, models.NewNode(node, locale))
	}
	return result
}

// ListTopLevel returns the top-level nodes of a scope
func (h *TreeHandler) ListTopLevel(c *gin.Context) {
	scope := c.Query("scope")
	if scope == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope is required"})
		return
	}

	nodes, err := h.nodes.Children(c.Request.Context(), nil, scope)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, BuildTreeFromNodes(nodes, c.Query("locale")))
}

// CreateNode creates a new node in the tree
func (h *TreeHandler) CreateNode(c *gin.Context) {
	var req models.CreateNodeRequest
	if !bind(c, &req) {
		return
	}

	node, err := h.nodes.Create(c.Request.Context(), content.CreateInput{
		ParentID:   req.ParentID,
		Parts:      req.Parts,
		Scope:      req.Scope,
		Locale:     req.Locale,
		AuthorID:   req.AuthorID,
		Title:      req.Title,
		Properties: req.Properties,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewNode(node, req.Locale))
}

// GetNode returns a single node
func (h *TreeHandler) GetNode(c *gin.Context) {
	node, err := h.nodes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewNode(node, c.Query("locale")))
}

// GetChildren returns the children of a node ordered by position
func (h *TreeHandler) GetChildren(c *gin.Context) {
	id := c.Param("id")
	nodes, err := h.nodes.Children(c.Request.Context(), &id, "")
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, BuildTreeFromNodes(nodes, c.Query("locale")))
}

// GetSubtree returns a node with all of its descendants nested
func (h *TreeHandler) GetSubtree(c *gin.Context) {
	nodes, err := h.nodes.Subtree(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BuildTree(nodes, c.Query("locale")))
}

// MoveNode moves a node with its subtree below a new parent
func (h *TreeHandler) MoveNode(c *gin.Context) {
	var req models.MoveNodeRequest
	if !bind(c, &req) {
		return
	}

	node, err := h.nodes.Move(c.Request.Context(), c.Param("id"), req.DestinationID, req.Scope, req.Locale, req.AuthorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewNode(node, req.Locale))
}

// CopyNode copies a node with its subtree below a parent
func (h *TreeHandler) CopyNode(c *gin.Context) {
	var req models.MoveNodeRequest
	if !bind(c, &req) {
		return
	}

	node, err := h.nodes.Copy(c.Request.Context(), c.Param("id"), req.DestinationID, req.Scope, req.Locale, req.AuthorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewNode(node, req.Locale))
}

// OrderBefore moves a node in front of a sibling
func (h *TreeHandler) OrderBefore(c *gin.Context) {
	var req models.OrderBeforeRequest
	if !bind(c, &req) {
		return
	}

	node, err := h.nodes.OrderBefore(c.Request.Context(), c.Param("id"), req.TargetID, req.Scope, req.Locale, req.AuthorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewNode(node, req.Locale))
}

// OrderAt moves a node to a position among its siblings
func (h *TreeHandler) OrderAt(c *gin.Context) {
	var req models.OrderAtRequest
	if !bind(c, &req) {
		return
	}

	node, err := h.nodes.OrderAt(c.Request.Context(), c.Param("id"), req.Position, req.Scope, req.Locale, req.AuthorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewNode(node, req.Locale))
}

// RenameNode regenerates the path segment of a node
func (h *TreeHandler) RenameNode(c *gin.Context) {
	var req models.RenameNodeRequest
	if !bind(c, &req) {
		return
	}

	node, err := h.nodes.Rename(c.Request.Context(), c.Param("id"), req.Parts, req.Scope, req.Locale, req.AuthorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewNode(node, req.Locale))
}

// DeleteNode deletes a node and its children
func (h *TreeHandler) DeleteNode(c *gin.Context) {
	scope := c.Query("scope")
	if scope == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope is required"})
		return
	}

	if err := h.nodes.Remove(c.Request.Context(), c.Param("id"), scope); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
