package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sulu/sulu-sub013/category"
	"github.com/sulu/sulu-sub013/models"
)

// CategoryHandler handles category HTTP requests
type CategoryHandler struct {
	tree *category.Tree
}

// NewCategoryHandler creates a new CategoryHandler instance
func NewCategoryHandler(tree *category.Tree) *CategoryHandler {
	return &CategoryHandler{tree: tree}
}

// List returns all categories ordered by lft
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.tree.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewCategories(categories))
}

// Create inserts a category
func (h *CategoryHandler) Create(c *gin.Context) {
	var req models.CreateCategoryRequest
	if !bind(c, &req) {
		return
	}

	created, err := h.tree.Insert(c.Request.Context(), req.ParentID, req.Key)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewCategory(created))
}

// Get returns a single category
func (h *CategoryHandler) Get(c *gin.Context) {
	found, err := h.tree.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewCategory(found))
}

// Descendants returns the categories below a category
func (h *CategoryHandler) Descendants(c *gin.Context) {
	categories, err := h.tree.DescendantsOf(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewCategories(categories))
}

// Ancestors returns the categories above a category
func (h *CategoryHandler) Ancestors(c *gin.Context) {
	categories, err := h.tree.AncestorsOf(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewCategories(categories))
}

// Between returns the categories between the from and to categories
func (h *CategoryHandler) Between(c *gin.Context) {
	from, to := splitIDs(c.QueryArray("from")), splitIDs(c.QueryArray("to"))
	if len(from) == 0 || len(to) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}

	categories, err := h.tree.FindBetween(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewCategories(categories))
}

// Move re-parents a category
func (h *CategoryHandler) Move(c *gin.Context) {
	var req models.MoveCategoryRequest
	if !bind(c, &req) {
		return
	}

	moved, err := h.tree.Move(c.Request.Context(), c.Param("id"), req.ParentID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewCategory(moved))
}

// Delete removes a category with its descendants
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.tree.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// splitIDs accepts both repeated and comma separated query values
func splitIDs(values []string) []string {
	var ids []string
	for _, value := range values {
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
