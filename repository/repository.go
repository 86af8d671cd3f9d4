package repository

import (
	"context"
	"fmt"
	"time"
)

// Node represents a content node in the tree structure
type Node struct {
	ID           string                       // Stable identifier, survives moves
	ParentID     *string                      // Optional reference to the parent node's ID
	Scope        string                       // Partition of the path namespace (site, workspace)
	Path         string                       // Current resource locator
	Position     int                          // 1-based index among siblings
	Properties   map[string]string            // Named property values
	Translations map[string]map[string]string // Per-locale field values
	Creator      string
	Changer      string
	Created      time.Time
	Changed      time.Time
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	c := *n
	if n.ParentID != nil {
		parentID := *n.ParentID
		c.ParentID = &parentID
	}
	c.Properties = make(map[string]string, len(n.Properties))
	for k, v := range n.Properties {
		c.Properties[k] = v
	}
	c.Translations = make(map[string]map[string]string, len(n.Translations))
	for locale, fields := range n.Translations {
		copied := make(map[string]string, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		c.Translations[locale] = copied
	}
	return &c
}

// Title returns the translated title of the node for a locale, falling back
// to the "title" property.
func (n *Node) Title(locale string) string {
	if fields, ok := n.Translations[locale]; ok && fields["title"] != "" {
		return fields["title"]
	}
	return n.Properties["title"]
}

// PathHistoryEntry is an archived resource locator of a node
type PathHistoryEntry struct {
	Scope     string
	Locale    string
	Path      string
	NodeID    string
	CreatedAt time.Time
}

// CategoryNode is a category stored as a nested set
type CategoryNode struct {
	ID       string
	Key      *string
	ParentID *string
	Lft      int
	Rgt      int
	Depth    int
	Created  time.Time
}

// Clone returns a copy of the category
func (c *CategoryNode) Clone() *CategoryNode {
	copied := *c
	if c.Key != nil {
		key := *c.Key
		copied.Key = &key
	}
	if c.ParentID != nil {
		parentID := *c.ParentID
		copied.ParentID = &parentID
	}
	return &copied
}

// CategoryRange selects categories by open lft/rgt intervals:
// LftAbove < lft < LftBelow and RgtAbove < rgt < RgtBelow.
type CategoryRange struct {
	LftAbove int
	LftBelow int
	RgtAbove int
	RgtBelow int
}

// Store defines the persistent tree behind the content services.
// All reads and writes happen inside a transaction obtained from Begin.
type Store interface {
	// Initialize performs any necessary setup for the store.
	// This may include establishing database connections and running
	// migrations.
	Initialize(ctx context.Context) error

	// Cleanup releases the resources held by the store.
	Cleanup(ctx context.Context) error

	// Begin opens a transaction. The returned Tx holds the store's write
	// lock until Commit or Rollback is called.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a transaction scope over the store. Its reads observe its own writes;
// nothing becomes visible to other transactions before Commit.
type Tx interface {
	// GetNode retrieves a node by its ID.
	// Returns a *NotFoundError if no node exists with the given ID.
	GetNode(ctx context.Context, id string) (*Node, error)

	// FindNodeByPath returns the node whose active path is path in scope.
	// Returns a *NotFoundError if no node holds the path.
	FindNodeByPath(ctx context.Context, scope, path string) (*Node, error)

	// ListChildren returns the children of parentID ordered by position.
	// A nil parentID lists the top-level nodes of scope.
	ListChildren(ctx context.Context, parentID *string, scope string) ([]*Node, error)

	// CreateNode inserts a new node.
	// Returns a *ConflictError if the ID or the (scope, path) pair is taken.
	CreateNode(ctx context.Context, node *Node) error

	// UpdateNode writes the structural and audit fields of an existing node:
	// parent, position, properties, translations, changer and changed.
	UpdateNode(ctx context.Context, node *Node) error

	// UpdateNodePath writes the active path of a node.
	UpdateNodePath(ctx context.Context, id, path string) error

	// TouchNode writes the changer/changed audit fields of a node.
	TouchNode(ctx context.Context, id, changer string, changed time.Time) error

	// DeleteNode removes a single node row. Children must be removed first.
	DeleteNode(ctx context.Context, id string) error

	// AddHistory archives a path. An existing entry with the same
	// (scope, locale, path) key is replaced.
	AddHistory(ctx context.Context, entry *PathHistoryEntry) error

	// GetHistoryEntry returns the archived entry for (scope, locale, path).
	// Returns a *NotFoundError if the path is not archived.
	GetHistoryEntry(ctx context.Context, scope, locale, path string) (*PathHistoryEntry, error)

	// FindHistoryByPath returns every archived entry for path in scope,
	// regardless of locale.
	FindHistoryByPath(ctx context.Context, scope, path string) ([]*PathHistoryEntry, error)

	// ListHistory returns the archived entries of a node, newest first.
	ListHistory(ctx context.Context, nodeID, scope, locale string) ([]*PathHistoryEntry, error)

	// DeleteHistory removes one archived entry.
	DeleteHistory(ctx context.Context, scope, locale, path string) error

	// DeleteNodeHistory removes every archived entry of a node.
	DeleteNodeHistory(ctx context.Context, nodeID string) error

	// GetCategory retrieves a category by ID.
	GetCategory(ctx context.Context, id string) (*CategoryNode, error)

	// GetCategoryByKey retrieves a category by its external key.
	GetCategoryByKey(ctx context.Context, key string) (*CategoryNode, error)

	// ListCategories returns all categories ordered by lft.
	ListCategories(ctx context.Context) ([]*CategoryNode, error)

	// ListCategoriesInRange returns the categories inside r ordered by lft.
	ListCategoriesInRange(ctx context.Context, r CategoryRange) ([]*CategoryNode, error)

	// MaxCategoryRgt returns the largest rgt value, 0 for an empty table.
	MaxCategoryRgt(ctx context.Context) (int, error)

	// CreateCategory inserts a category with precomputed bounds.
	CreateCategory(ctx context.Context, category *CategoryNode) error

	// SetCategoryParent rewrites the parent reference of a category.
	SetCategoryParent(ctx context.Context, id string, parentID *string) error

	// ShiftCategoryBounds adds delta to every lft >= from and every rgt >= from.
	ShiftCategoryBounds(ctx context.Context, from, delta int) error

	// ShiftCategoryRange adds delta to lft and rgt and depthDelta to depth of
	// every category whose lft lies in [lo, hi].
	ShiftCategoryRange(ctx context.Context, lo, hi, delta, depthDelta int) error

	// DeleteCategoryRange removes every category whose lft lies in [lo, hi].
	DeleteCategoryRange(ctx context.Context, lo, hi int) error

	// Commit makes the transaction's writes visible and releases it.
	Commit() error

	// Rollback discards the transaction's writes and releases it.
	// Calling Rollback after Commit is a no-op.
	Rollback() error
}

// WithTx runs fn inside a transaction of store. The transaction commits when
// fn returns nil and rolls back on error or panic.
func WithTx(ctx context.Context, store Store, fn func(tx Tx) error) (err error) {
	tx, err := store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	committed = true
	return nil
}
