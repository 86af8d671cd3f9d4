package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sulu/sulu-sub013/cache"
	"github.com/sulu/sulu-sub013/handlers"
	"github.com/sulu/sulu-sub013/internal/bootstrap"
	"github.com/sulu/sulu-sub013/models"
	"github.com/sulu/sulu-sub013/repository"
	"github.com/sulu/sulu-sub013/resourcelocator"
)

func setupRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	require.NoError(t, store.Initialize(context.Background()))
	app := bootstrap.Wire(store, cache.NewMemoryCache(), resourcelocator.NewPathResolver("", nil), zaptest.NewLogger(t))
	t.Cleanup(func() {
		if err := app.Close(context.Background()); err != nil {
			t.Errorf("Failed to close app: %v", err)
		}
	})
	return app.Router()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

var actor = models.Actor{Scope: "site", Locale: "en", AuthorID: "alice"}

func createNode(t *testing.T, router http.Handler, parentID *string, parts ...string) *models.Node {
	w := doJSON(t, router, http.MethodPost, "/api/nodes", models.CreateNodeRequest{Actor: actor, ParentID: parentID, Parts: parts})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var node models.Node
	decode(t, w, &node)
	return &node
}

func TestCreateAndResolve(t *testing.T) {
	router := setupRouter(t)

	news := createNode(t, router, nil, "News")
	assert.Equal(t, "/news", news.Path)
	assert.Equal(t, "News", news.Title)

	hello := createNode(t, router, &news.ID, "Hello World")
	assert.Equal(t, "/news/hello-world", hello.Path)
	assert.Equal(t, 1, hello.Position)

	w := doJSON(t, router, http.MethodGet, "/api/resourcelocators/resolve?scope=site&path=/news/hello-world", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resolution models.Resolution
	decode(t, w, &resolution)
	assert.Equal(t, hello.ID, resolution.NodeID)
	assert.False(t, resolution.Redirect)

	w = doJSON(t, router, http.MethodGet, "/api/resourcelocators/resolve?scope=site&path=/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/resourcelocators/resolve?scope=site", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateNodeInvalidInput(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"malformed json", "not an object", http.StatusBadRequest},
		{"missing parts", models.CreateNodeRequest{Actor: actor}, http.StatusBadRequest},
		{"missing scope", models.CreateNodeRequest{Actor: models.Actor{Locale: "en", AuthorID: "alice"}, Parts: []string{"x"}}, http.StatusBadRequest},
		{"parent is not a uuid", models.CreateNodeRequest{Actor: actor, ParentID: strPtr("root"), Parts: []string{"x"}}, http.StatusBadRequest},
		{"unknown parent", models.CreateNodeRequest{Actor: actor, ParentID: strPtr("6f1c2a4e-8f43-4d3c-9a55-0a3a0c5e7b11"), Parts: []string{"x"}}, http.StatusNotFound},
		{"no slug", models.CreateNodeRequest{Actor: actor, Parts: []string{"!!!"}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/nodes", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestGenerate(t *testing.T) {
	router := setupRouter(t)
	news := createNode(t, router, nil, "News")

	tests := []struct {
		name string
		req  models.GenerateRequest
		want string
	}{
		{"taken path gets a suffix", models.GenerateRequest{Parts: []string{"News"}, Scope: "site", Locale: "en"}, "/news-2"},
		{"other scope", models.GenerateRequest{Parts: []string{"News"}, Scope: "intranet", Locale: "en"}, "/news"},
		{"below parent path", models.GenerateRequest{Parts: []string{"Über uns"}, ParentPath: "/news", Scope: "site", Locale: "de"}, "/news/ueber-uns"},
		{"below parent node", models.GenerateRequest{Parts: []string{"Hello"}, ParentID: &news.ID, Scope: "site", Locale: "en"}, "/news/hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/resourcelocators/generate", tt.req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var locator models.ResourceLocator
			decode(t, w, &locator)
			assert.Equal(t, tt.want, locator.ResourceLocator)
		})
	}

	w := doJSON(t, router, http.MethodPost, "/api/resourcelocators/generate", models.GenerateRequest{Scope: "site", Locale: "en"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRenameHistoryAndRestore(t *testing.T) {
	router := setupRouter(t)
	news := createNode(t, router, nil, "News")
	hello := createNode(t, router, &news.ID, "Hello World")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/nodes/%s/rename", hello.ID), models.RenameNodeRequest{Actor: actor, Parts: []string{"Hi"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var renamed models.Node
	decode(t, w, &renamed)
	assert.Equal(t, "/news/hi", renamed.Path)

	// the old path redirects
	w = doJSON(t, router, http.MethodGet, "/api/resourcelocators/resolve?scope=site&path=/news/hello-world", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resolution models.Resolution
	decode(t, w, &resolution)
	assert.True(t, resolution.Redirect)
	assert.Equal(t, "/news/hi", resolution.Path)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/nodes/%s/resourcelocators?scope=site&locale=en", hello.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.HistoryEntry
	decode(t, w, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "/news/hello-world", history[0].ResourceLocator)

	w = doJSON(t, router, http.MethodPost, "/api/resourcelocators/restore", models.RestoreRequest{Actor: actor, Path: "/news/hello-world"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var locator models.ResourceLocator
	decode(t, w, &locator)
	assert.Equal(t, "/news/hello-world", locator.ResourceLocator)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/nodes/%s", hello.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var restored models.Node
	decode(t, w, &restored)
	assert.Equal(t, "/news/hello-world", restored.Path)

	// /news/hi is archived now and can be deleted
	w = doJSON(t, router, http.MethodDelete, "/api/resourcelocators?path=/news/hi&scope=site&locale=en", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, router, http.MethodGet, "/api/resourcelocators/resolve?scope=site&path=/news/hi", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/resourcelocators/restore", models.RestoreRequest{Actor: actor, Path: "/nowhere"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMoveCopyAndOrder(t *testing.T) {
	router := setupRouter(t)
	news := createNode(t, router, nil, "News")
	blog := createNode(t, router, nil, "Blog")
	a := createNode(t, router, &news.ID, "A")
	b := createNode(t, router, &news.ID, "B")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/nodes/%s/move", a.ID), models.MoveNodeRequest{Actor: actor, DestinationID: &blog.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var moved models.Node
	decode(t, w, &moved)
	assert.Equal(t, "/blog/a", moved.Path)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/nodes/%s/move", news.ID), models.MoveNodeRequest{Actor: actor, DestinationID: &b.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/nodes/%s/copy", news.ID), models.MoveNodeRequest{Actor: actor, DestinationID: &blog.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var copied models.Node
	decode(t, w, &copied)
	assert.Equal(t, "/blog/news", copied.Path)
	assert.NotEqual(t, news.ID, copied.ID)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/nodes/%s/tree", blog.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tree models.Node
	decode(t, w, &tree)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, "/blog/a", tree.Children[0].Path)
	assert.Equal(t, "/blog/news", tree.Children[1].Path)
	require.Len(t, tree.Children[1].Children, 1)
	assert.Equal(t, "/blog/news/b", tree.Children[1].Children[0].Path)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/nodes/%s/order-before", copied.ID), models.OrderBeforeRequest{Actor: actor, TargetID: moved.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/nodes/%s/children", blog.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var children []models.Node
	decode(t, w, &children)
	require.Len(t, children, 2)
	assert.Equal(t, copied.ID, children[0].ID)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/nodes/%s/order-at", copied.ID), models.OrderAtRequest{Actor: actor, Position: 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ordered models.Node
	decode(t, w, &ordered)
	assert.Equal(t, 2, ordered.Position)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/nodes/%s/order-before", copied.ID), models.OrderBeforeRequest{Actor: actor, TargetID: b.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListAndDelete(t *testing.T) {
	router := setupRouter(t)
	news := createNode(t, router, nil, "News")
	createNode(t, router, &news.ID, "Hello")
	createNode(t, router, nil, "Blog")

	w := doJSON(t, router, http.MethodGet, "/api/nodes?scope=site&locale=en", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var nodes []models.Node
	decode(t, w, &nodes)
	require.Len(t, nodes, 2)
	assert.Equal(t, "News", nodes[0].Title)

	w = doJSON(t, router, http.MethodGet, "/api/nodes", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/nodes/%s?scope=site", news.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/nodes/%s", news.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/nodes/%s?scope=site", news.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func createCategory(t *testing.T, router http.Handler, parentID *string, key string) *models.Category {
	w := doJSON(t, router, http.MethodPost, "/api/categories", models.CreateCategoryRequest{ParentID: parentID, Key: &key})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var category models.Category
	decode(t, w, &category)
	return &category
}

func TestCategories(t *testing.T) {
	router := setupRouter(t)
	root := createCategory(t, router, nil, "root")
	mid := createCategory(t, router, &root.ID, "mid")
	leaf := createCategory(t, router, &mid.ID, "leaf")
	other := createCategory(t, router, nil, "other")

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/categories/between?from=%s&to=%s", root.ID, leaf.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var between []models.Category
	decode(t, w, &between)
	require.Len(t, between, 1)
	assert.Equal(t, mid.ID, between[0].ID)

	w = doJSON(t, router, http.MethodGet, "/api/categories/between?from="+root.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/categories/%s/descendants", root.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var descendants []models.Category
	decode(t, w, &descendants)
	assert.Len(t, descendants, 2)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/categories/%s/ancestors", leaf.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ancestors []models.Category
	decode(t, w, &ancestors)
	require.Len(t, ancestors, 2)
	assert.Equal(t, root.ID, ancestors[0].ID)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/categories/%s/move", root.ID), models.MoveCategoryRequest{ParentID: &leaf.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/categories/%s/move", mid.ID), models.MoveCategoryRequest{ParentID: &other.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var moved models.Category
	decode(t, w, &moved)
	assert.Equal(t, other.ID, *moved.ParentID)
	assert.Equal(t, 1, moved.Depth)

	w = doJSON(t, router, http.MethodPost, "/api/categories", models.CreateCategoryRequest{Key: strPtr("root")})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/categories/%s", other.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Category
	decode(t, w, &all)
	require.Len(t, all, 1)
	assert.Equal(t, root.ID, all[0].ID)
	assert.Equal(t, 2, all[0].Rgt)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/categories/%s", leaf.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&repository.NotFoundError{Kind: "node", ID: "x"}, http.StatusNotFound},
		{&repository.ConflictError{Op: "move", ID: "x", Reason: "cycle"}, http.StatusConflict},
		{&repository.MissingArgumentError{Argument: "scope"}, http.StatusBadRequest},
		{&repository.ValidationError{Field: "path", Message: "bad"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", &repository.NotFoundError{Kind: "path", ID: "/x"}), http.StatusNotFound},
		{&repository.InvariantError{Message: "broken"}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, handlers.StatusFor(tt.err), tt.err.Error())
	}
}

func strPtr(s string) *string {
	return &s
}
