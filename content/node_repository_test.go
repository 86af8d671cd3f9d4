package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sulu/sulu-sub013/cache"
	"github.com/sulu/sulu-sub013/repository"
	"github.com/sulu/sulu-sub013/resourcelocator"
)

const (
	scope  = "site"
	locale = "en"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupRepository(t *testing.T) (*NodeRepository, *resourcelocator.Strategy) {
	return setupRepositoryWithResolver(t, resourcelocator.NewPathResolver("", nil))
}

func setupRepositoryWithResolver(t *testing.T, resolver *resourcelocator.PathResolver) (*NodeRepository, *resourcelocator.Strategy) {
	store := repository.NewMemoryStore()
	require.NoError(t, store.Initialize(context.Background()))

	logger := zaptest.NewLogger(t)
	strategy := resourcelocator.NewStrategy(store, resolver, cache.NewMemoryCache(), logger)
	clock := baseTime
	strategy.SetClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})

	t.Cleanup(func() {
		if err := store.Cleanup(context.Background()); err != nil {
			t.Errorf("Failed to cleanup store: %v", err)
		}
	})
	return NewNodeRepository(store, strategy, logger), strategy
}

func create(t *testing.T, repo *NodeRepository, parentID *string, parts ...string) *repository.Node {
	node, err := repo.Create(context.Background(), CreateInput{
		ParentID: parentID,
		Parts:    parts,
		Scope:    scope,
		Locale:   locale,
		AuthorID: "alice",
	})
	require.NoError(t, err)
	return node
}

func get(t *testing.T, repo *NodeRepository, id string) *repository.Node {
	node, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	return node
}

func historyPaths(t *testing.T, strategy *resourcelocator.Strategy, id string) []string {
	entries, err := strategy.GetHistory(context.Background(), id, scope, locale)
	require.NoError(t, err)
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	return paths
}

func positions(t *testing.T, repo *NodeRepository, parentID *string) map[string]int {
	children, err := repo.Children(context.Background(), parentID, scope)
	require.NoError(t, err)
	result := make(map[string]int, len(children))
	for _, child := range children {
		result[child.ID] = child.Position
	}
	return result
}

func TestCreateBelowParentOfOtherLocale(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepositoryWithResolver(t, resourcelocator.NewPathResolver("", map[string]string{"fr": "_"}))

	parent := create(t, repo, nil, "Hello", "World")
	child, err := repo.Create(ctx, CreateInput{
		ParentID: &parent.ID,
		Parts:    []string{"Bonjour le monde"},
		Scope:    scope,
		Locale:   "fr",
		AuthorID: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "/hello-world/bonjour_le_monde", child.Path)

	grandchild := create(t, repo, &child.ID, "Hello", "Again")
	assert.Equal(t, "/hello-world/bonjour_le_monde/hello-again", grandchild.Path)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	news := create(t, repo, nil, "News")
	assert.Equal(t, "/news", news.Path)
	assert.Equal(t, 1, news.Position)
	assert.Equal(t, "News", news.Title(locale))
	assert.Equal(t, "alice", news.Creator)

	again := create(t, repo, nil, "News")
	assert.Equal(t, "/news-2", again.Path)
	assert.Equal(t, 2, again.Position)

	hello := create(t, repo, &news.ID, "Hello", "World")
	assert.Equal(t, "/news/hello-world", hello.Path)
	assert.Equal(t, news.ID, *hello.ParentID)
	assert.Equal(t, "Hello World", hello.Title(locale))

	_, err := repo.Create(ctx, CreateInput{ParentID: strPtr("missing"), Parts: []string{"x"}, Scope: scope, Locale: locale})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Create(ctx, CreateInput{ParentID: &news.ID, Parts: []string{"x"}, Scope: "intranet", Locale: locale})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Create(ctx, CreateInput{Parts: []string{"x"}, Locale: locale})
	assert.ErrorIs(t, err, repository.ErrMissingArgument)

	_, err = repo.Create(ctx, CreateInput{Parts: []string{"???"}, Scope: scope, Locale: locale})
	assert.ErrorIs(t, err, repository.ErrValidation)
}

func strPtr(s string) *string {
	return &s
}

func TestMoveRewritesSubtree(t *testing.T) {
	ctx := context.Background()
	repo, strategy := setupRepository(t)

	news := create(t, repo, nil, "News")
	blog := create(t, repo, nil, "Blog")
	hello := create(t, repo, &news.ID, "Hello World")
	deep := create(t, repo, &hello.ID, "Deep")
	other := create(t, repo, &news.ID, "Other")

	moved, err := repo.Move(ctx, hello.ID, &blog.ID, scope, locale, "bob")
	require.NoError(t, err)
	assert.Equal(t, "/blog/hello-world", moved.Path)
	assert.Equal(t, blog.ID, *moved.ParentID)
	assert.Equal(t, 1, moved.Position)
	assert.Equal(t, "bob", moved.Changer)
	assert.Equal(t, "/blog/hello-world/deep", get(t, repo, deep.ID).Path)

	// each previous path is archived exactly once
	assert.Equal(t, []string{"/news/hello-world"}, historyPaths(t, strategy, hello.ID))
	assert.Equal(t, []string{"/news/hello-world/deep"}, historyPaths(t, strategy, deep.ID))

	// the old siblings are renumbered
	assert.Equal(t, map[string]int{other.ID: 1}, positions(t, repo, &news.ID))

	// old paths redirect to the moved nodes
	resolution, err := strategy.Resolve(ctx, scope, "/news/hello-world/deep")
	require.NoError(t, err)
	assert.Equal(t, deep.ID, resolution.NodeID)
	assert.True(t, resolution.Redirect)
	assert.Equal(t, "/blog/hello-world/deep", resolution.Path)

	// moving back reclaims the archived paths
	back, err := repo.Move(ctx, hello.ID, &news.ID, scope, locale, "bob")
	require.NoError(t, err)
	assert.Equal(t, "/news/hello-world", back.Path)
	assert.Equal(t, 2, back.Position)
	assert.Equal(t, []string{"/blog/hello-world"}, historyPaths(t, strategy, hello.ID))
	assert.Equal(t, []string{"/blog/hello-world/deep"}, historyPaths(t, strategy, deep.ID))
}

func TestMoveAvoidsTakenPaths(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	news := create(t, repo, nil, "News")
	blog := create(t, repo, nil, "Blog")
	hello := create(t, repo, &news.ID, "Hello World")
	deep := create(t, repo, &hello.ID, "Deep")
	create(t, repo, &blog.ID, "Hello World")

	moved, err := repo.Move(ctx, hello.ID, &blog.ID, scope, locale, "bob")
	require.NoError(t, err)
	assert.Equal(t, "/blog/hello-world-2", moved.Path)
	assert.Equal(t, 2, moved.Position)
	assert.Equal(t, "/blog/hello-world-2/deep", get(t, repo, deep.ID).Path)
}

func TestMoveToTopLevel(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	news := create(t, repo, nil, "News")
	hello := create(t, repo, &news.ID, "Hello World")

	moved, err := repo.Move(ctx, hello.ID, nil, scope, locale, "bob")
	require.NoError(t, err)
	assert.Equal(t, "/hello-world", moved.Path)
	assert.Nil(t, moved.ParentID)
	assert.Equal(t, 2, moved.Position)
}

func TestMoveIntoOwnSubtreeIsRejected(t *testing.T) {
	ctx := context.Background()
	repo, strategy := setupRepository(t)

	news := create(t, repo, nil, "News")
	hello := create(t, repo, &news.ID, "Hello World")
	deep := create(t, repo, &hello.ID, "Deep")

	_, err := repo.Move(ctx, news.ID, &deep.ID, scope, locale, "bob")
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = repo.Move(ctx, news.ID, &news.ID, scope, locale, "bob")
	assert.ErrorIs(t, err, repository.ErrConflict)

	// nothing was written
	assert.Equal(t, "/news", get(t, repo, news.ID).Path)
	assert.Nil(t, get(t, repo, news.ID).ParentID)
	assert.Equal(t, "/news/hello-world/deep", get(t, repo, deep.ID).Path)
	assert.Empty(t, historyPaths(t, strategy, news.ID))
}

func TestMoveToSameParentOnlyTouches(t *testing.T) {
	ctx := context.Background()
	repo, strategy := setupRepository(t)

	news := create(t, repo, nil, "News")
	hello := create(t, repo, &news.ID, "Hello World")

	moved, err := repo.Move(ctx, hello.ID, &news.ID, scope, locale, "bob")
	require.NoError(t, err)
	assert.Equal(t, "/news/hello-world", moved.Path)
	assert.Equal(t, "bob", moved.Changer)
	assert.True(t, moved.Changed.After(hello.Changed))
	assert.Empty(t, historyPaths(t, strategy, hello.ID))
}

func TestMoveUnknownNodes(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)
	news := create(t, repo, nil, "News")

	_, err := repo.Move(ctx, "missing", nil, scope, locale, "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Move(ctx, news.ID, strPtr("missing"), scope, locale, "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// nodes of another scope are not visible
	_, err = repo.Move(ctx, news.ID, nil, "intranet", locale, "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	repo, strategy := setupRepository(t)

	news := create(t, repo, nil, "News")
	blog := create(t, repo, nil, "Blog")
	hello := create(t, repo, &news.ID, "Hello World")
	deep := create(t, repo, &hello.ID, "Deep")

	copied, err := repo.Copy(ctx, news.ID, &blog.ID, scope, locale, "bob")
	require.NoError(t, err)
	assert.NotEqual(t, news.ID, copied.ID)
	assert.Equal(t, "/blog/news", copied.Path)
	assert.Equal(t, blog.ID, *copied.ParentID)
	assert.Equal(t, 1, copied.Position)
	assert.Equal(t, "bob", copied.Creator)
	assert.Equal(t, "bob", copied.Changer)
	assert.Equal(t, "News", copied.Title(locale))

	subtree, err := repo.Subtree(ctx, copied.ID)
	require.NoError(t, err)
	require.Len(t, subtree, 3)
	assert.Equal(t, "/blog/news/hello-world", subtree[1].Path)
	assert.Equal(t, "/blog/news/hello-world/deep", subtree[2].Path)
	assert.Equal(t, subtree[1].ID, *subtree[2].ParentID)
	for _, node := range subtree {
		assert.NotContains(t, []string{news.ID, hello.ID, deep.ID}, node.ID)
		assert.Equal(t, "bob", node.Creator)
		assert.Empty(t, historyPaths(t, strategy, node.ID))
	}

	// the source is untouched
	assert.Equal(t, "/news/hello-world/deep", get(t, repo, deep.ID).Path)
	assert.Empty(t, historyPaths(t, strategy, news.ID))

	// copying next to the source picks a fresh path
	sibling, err := repo.Copy(ctx, news.ID, nil, scope, locale, "bob")
	require.NoError(t, err)
	assert.Equal(t, "/news-2", sibling.Path)
	assert.Equal(t, 3, sibling.Position)

	_, err = repo.Copy(ctx, news.ID, &deep.ID, scope, locale, "bob")
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestArchivedPathsStayReserved(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	news := create(t, repo, nil, "News")
	hello := create(t, repo, &news.ID, "Hello")
	_, err := repo.Rename(ctx, hello.ID, []string{"Hi"}, scope, locale, "bob")
	require.NoError(t, err)

	// /news/hello is archived by the renamed node
	assert.Equal(t, "/news/hello-2", create(t, repo, &news.ID, "Hello").Path)

	copied, err := repo.Copy(ctx, hello.ID, &news.ID, scope, locale, "bob")
	require.NoError(t, err)
	assert.Equal(t, "/news/hi-2", copied.Path)
}

func TestOrderBefore(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	parent := create(t, repo, nil, "Parent")
	a := create(t, repo, &parent.ID, "A")
	b := create(t, repo, &parent.ID, "B")
	c := create(t, repo, &parent.ID, "C")

	ordered, err := repo.OrderBefore(ctx, c.ID, a.ID, scope, locale, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, ordered.Position)
	assert.Equal(t, "bob", ordered.Changer)
	assert.Equal(t, map[string]int{c.ID: 1, a.ID: 2, b.ID: 3}, positions(t, repo, &parent.ID))

	_, err = repo.OrderBefore(ctx, a.ID, b.ID, scope, locale, "bob")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{c.ID: 1, a.ID: 2, b.ID: 3}, positions(t, repo, &parent.ID))

	// paths do not change
	assert.Equal(t, "/parent/c", get(t, repo, c.ID).Path)

	before := get(t, repo, a.ID)
	ordered, err = repo.OrderBefore(ctx, a.ID, a.ID, scope, locale, "carol")
	require.NoError(t, err)
	assert.Equal(t, 2, ordered.Position)
	assert.Equal(t, map[string]int{c.ID: 1, a.ID: 2, b.ID: 3}, positions(t, repo, &parent.ID))
	after := get(t, repo, a.ID)
	assert.Equal(t, before.Changer, after.Changer)
	assert.Equal(t, before.Changed, after.Changed)

	_, err = repo.OrderBefore(ctx, a.ID, parent.ID, scope, locale, "bob")
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestOrderAt(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	parent := create(t, repo, nil, "Parent")
	a := create(t, repo, &parent.ID, "A")
	b := create(t, repo, &parent.ID, "B")
	c := create(t, repo, &parent.ID, "C")

	tests := []struct {
		name     string
		id       string
		position int
		want     map[string]int
	}{
		{"to the end", a.ID, 3, map[string]int{b.ID: 1, c.ID: 2, a.ID: 3}},
		{"to the front", a.ID, 1, map[string]int{a.ID: 1, b.ID: 2, c.ID: 3}},
		{"into the middle", c.ID, 2, map[string]int{a.ID: 1, c.ID: 2, b.ID: 3}},
		{"clamped high", a.ID, 99, map[string]int{c.ID: 1, b.ID: 2, a.ID: 3}},
		{"clamped low", a.ID, 0, map[string]int{a.ID: 1, c.ID: 2, b.ID: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.OrderAt(ctx, tt.id, tt.position, scope, locale, "bob")
			require.NoError(t, err)
			assert.Equal(t, tt.want, positions(t, repo, &parent.ID))
		})
	}
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	repo, strategy := setupRepository(t)

	news := create(t, repo, nil, "News")
	hello := create(t, repo, &news.ID, "Hello World")

	renamed, err := repo.Rename(ctx, news.ID, []string{"Press"}, scope, locale, "bob")
	require.NoError(t, err)
	assert.Equal(t, "/press", renamed.Path)
	assert.Equal(t, "Press", renamed.Title(locale))
	assert.Equal(t, "bob", renamed.Changer)
	assert.Equal(t, "/press/hello-world", get(t, repo, hello.ID).Path)
	assert.Equal(t, []string{"/news"}, historyPaths(t, strategy, news.ID))
	assert.Equal(t, []string{"/news/hello-world"}, historyPaths(t, strategy, hello.ID))

	// same slug keeps the path and only updates the title
	same, err := repo.Rename(ctx, news.ID, []string{"PRESS"}, scope, locale, "bob")
	require.NoError(t, err)
	assert.Equal(t, "/press", same.Path)
	assert.Equal(t, "PRESS", same.Title(locale))
	assert.Equal(t, []string{"/news"}, historyPaths(t, strategy, news.ID))

	_, err = repo.Rename(ctx, news.ID, nil, scope, locale, "bob")
	assert.ErrorIs(t, err, repository.ErrMissingArgument)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	repo, strategy := setupRepository(t)

	news := create(t, repo, nil, "News")
	blog := create(t, repo, nil, "Blog")
	hello := create(t, repo, &news.ID, "Hello World")
	create(t, repo, &hello.ID, "Deep")
	_, err := repo.Rename(ctx, hello.ID, []string{"Hi"}, scope, locale, "bob")
	require.NoError(t, err)

	require.NoError(t, repo.Remove(ctx, news.ID, scope))

	_, err = repo.Get(ctx, news.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Get(ctx, hello.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, map[string]int{blog.ID: 1}, positions(t, repo, nil))

	// the active and the archived paths are free again
	_, err = strategy.Resolve(ctx, scope, "/news/hello-world")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, "/news", create(t, repo, nil, "News").Path)

	assert.ErrorIs(t, repo.Remove(ctx, news.ID, scope), repository.ErrNotFound)
}

func TestChildren(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepository(t)

	news := create(t, repo, nil, "News")
	create(t, repo, &news.ID, "A")
	create(t, repo, &news.ID, "B")

	top, err := repo.Children(ctx, nil, scope)
	require.NoError(t, err)
	require.Len(t, top, 1)

	children, err := repo.Children(ctx, &news.ID, "ignored")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "/news/a", children[0].Path)
	assert.Equal(t, "/news/b", children[1].Path)

	_, err = repo.Children(ctx, strPtr("missing"), scope)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
