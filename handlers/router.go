package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sulu/sulu-sub013/category"
	"github.com/sulu/sulu-sub013/content"
	"github.com/sulu/sulu-sub013/logging"
	"github.com/sulu/sulu-sub013/resourcelocator"
)

// NewRouter wires every handler into a gin engine
func NewRouter(strategy *resourcelocator.Strategy, nodes *content.NodeRepository, categories *category.Tree, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(logger))

	locators := NewResourceLocatorHandler(strategy)
	tree := NewTreeHandler(nodes)
	categoryHandler := NewCategoryHandler(categories)

	// API routes
	api := r.Group("/api")
	{
		api.POST("/resourcelocators/generate", locators.Generate)
		api.GET("/resourcelocators/resolve", locators.Resolve)
		api.POST("/resourcelocators/restore", locators.Restore)
		api.DELETE("/resourcelocators", locators.Delete)

		api.GET("/nodes", tree.ListTopLevel)
		api.POST("/nodes", tree.CreateNode)
		api.GET("/nodes/:id", tree.GetNode)
		api.GET("/nodes/:id/children", tree.GetChildren)
		api.GET("/nodes/:id/tree", tree.GetSubtree)
		api.GET("/nodes/:id/resourcelocators", locators.History)
		api.POST("/nodes/:id/move", tree.MoveNode)
		api.POST("/nodes/:id/copy", tree.CopyNode)
		api.POST("/nodes/:id/order-before", tree.OrderBefore)
		api.POST("/nodes/:id/order-at", tree.OrderAt)
		api.POST("/nodes/:id/rename", tree.RenameNode)
		api.DELETE("/nodes/:id", tree.DeleteNode)

		api.GET("/categories", categoryHandler.List)
		api.POST("/categories", categoryHandler.Create)
		api.GET("/categories/between", categoryHandler.Between)
		api.GET("/categories/:id", categoryHandler.Get)
		api.GET("/categories/:id/descendants", categoryHandler.Descendants)
		api.GET("/categories/:id/ancestors", categoryHandler.Ancestors)
		api.POST("/categories/:id/move", categoryHandler.Move)
		api.DELETE("/categories/:id", categoryHandler.Delete)
	}

	return r
}
