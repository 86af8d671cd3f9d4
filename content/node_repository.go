// Package content implements the structural operations on the content tree:
// create, move, copy, reorder, rename and remove, each in one transaction
// with the resource locators of the affected subtree kept consistent.
package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sulu/sulu-sub013/repository"
	"github.com/sulu/sulu-sub013/resourcelocator"
)

// CreateInput describes a node to create
type CreateInput struct {
	ParentID   *string
	Parts      []string
	Scope      string
	Locale     string
	AuthorID   string
	Title      string
	Properties map[string]string
}

// NodeRepository manipulates the content tree
type NodeRepository struct {
	store    repository.Store
	strategy *resourcelocator.Strategy
	logger   *zap.Logger
}

// NewNodeRepository creates a new NodeRepository instance
func NewNodeRepository(store repository.Store, strategy *resourcelocator.Strategy, logger *zap.Logger) *NodeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NodeRepository{
		store:    store,
		strategy: strategy,
		logger:   logger,
	}
}

// destination loads the new parent of a move or copy and rejects cycles.
// A nil destinationID is the top level of scope.
func destination(ctx context.Context, tx repository.Tx, op, sourceID string, destinationID *string, scope string) (string, error) {
	if destinationID == nil {
		return "", nil
	}
	dest, err := repository.GetNodeInScope(ctx, tx, *destinationID, scope)
	if err != nil {
		return "", err
	}
	cycle, err := repository.IsDescendantOrSelf(ctx, tx, dest.ID, sourceID)
	if err != nil {
		return "", err
	}
	if cycle {
		return "", &repository.ConflictError{Op: op, ID: sourceID, Reason: fmt.Sprintf("destination %s is the node itself or one of its descendants", dest.ID)}
	}
	return dest.Path, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Create stores a new node as the last child of its parent with a freshly
// generated unique path
func (r *NodeRepository) Create(ctx context.Context, in CreateInput) (*repository.Node, error) {
	if in.Scope == "" {
		return nil, &repository.MissingArgumentError{Argument: "scope"}
	}

	var created *repository.Node
	err := repository.WithTx(ctx, r.store, func(tx repository.Tx) error {
		parentPath := ""
		if in.ParentID != nil {
			parent, err := repository.GetNodeInScope(ctx, tx, *in.ParentID, in.Scope)
			if err != nil {
				return err
			}
			parentPath = parent.Path
		}

		candidate, err := r.strategy.Resolver().Generate(in.Parts, parentPath, in.Locale)
		if err != nil {
			return err
		}
		path, err := r.strategy.UniquePath(ctx, tx, in.Scope, in.Locale, candidate, "")
		if err != nil {
			return err
		}
		siblings, err := tx.ListChildren(ctx, in.ParentID, in.Scope)
		if err != nil {
			return err
		}

		title := in.Title
		if title == "" {
			title = strings.Join(in.Parts, " ")
		}
		properties := make(map[string]string, len(in.Properties))
		for k, v := range in.Properties {
			properties[k] = v
		}
		now := r.strategy.Now()
		created = &repository.Node{
			ID:           uuid.NewString(),
			ParentID:     in.ParentID,
			Scope:        in.Scope,
			Path:         path,
			Position:     len(siblings) + 1,
			Properties:   properties,
			Translations: map[string]map[string]string{in.Locale: {"title": title}},
			Creator:      in.AuthorID,
			Changer:      in.AuthorID,
			Created:      now,
			Changed:      now,
		}
		return tx.CreateNode(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	r.strategy.InvalidateCache()
	r.logger.Info("created node", zap.String("id", created.ID), zap.String("path", created.Path))
	return created, nil
}

// Get retrieves a node by ID
func (r *NodeRepository) Get(ctx context.Context, id string) (*repository.Node, error) {
	var node *repository.Node
	err := repository.WithTx(ctx, r.store, func(tx repository.Tx) error {
		var err error
		node, err = tx.GetNode(ctx, id)
		return err
	})
	return node, err
}

// Children lists the children of parentID ordered by position. A nil
// parentID lists the top-level nodes of scope.
func (r *NodeRepository) Children(ctx context.Context, parentID *string, scope string) ([]*repository.Node, error) {
	var children []*repository.Node
	err := repository.WithTx(ctx, r.store, func(tx repository.Tx) error {
		if parentID != nil {
			parent, err := tx.GetNode(ctx, *parentID)
			if err != nil {
				return err
			}
			scope = parent.Scope
		}
		var err error
		children, err = tx.ListChildren(ctx, parentID, scope)
		return err
	})
	return children, err
}

// Subtree returns a node and all of its descendants in pre-order
func (r *NodeRepository) Subtree(ctx context.Context, id string) ([]*repository.Node, error) {
	var nodes []*repository.Node
	err := repository.WithTx(ctx, r.store, func(tx repository.Tx) error {
		var err error
		nodes, err = repository.Subtree(ctx, tx, id)
		return err
	})
	return nodes, err
}

// Move re-parents a node below destinationID, or to the top level for nil.
// The paths of the node and all of its descendants are rewritten onto the
// new parent's path and every previous path is archived.
func (r *NodeRepository) Move(ctx context.Context, sourceID string, destinationID *string, scope, locale, authorID string) (*repository.Node, error) {
	var moved *repository.Node
	var oldPath string
	err := repository.WithTx(ctx, r.store, func(tx repository.Tx) error {
		source, err := repository.GetNodeInScope(ctx, tx, sourceID, scope)
		if err != nil {
			return err
		}
		destPath, err := destination(ctx, tx, "move", sourceID, destinationID, scope)
		if err != nil {
			return err
		}
		oldPath = source.Path
		now := r.strategy.Now()

		if sameParent(source.ParentID, destinationID) {
			if err := tx.TouchNode(ctx, source.ID, authorID, now); err != nil {
				return err
			}
			moved, err = tx.GetNode(ctx, source.ID)
			return err
		}

		subtree, err := repository.Subtree(ctx, tx, source.ID)
		if err != nil {
			return err
		}
		candidate := resourcelocator.Join(destPath, resourcelocator.Segment(source.Path))
		newPath, err := r.strategy.UniqueSubtreePath(ctx, tx, scope, locale, candidate, resourcelocator.Subtree(subtree, source.Path))
		if err != nil {
			return err
		}
		if err := r.strategy.RewriteSubtree(ctx, tx, subtree, source.Path, newPath, locale, now); err != nil {
			return err
		}

		newSiblings, err := tx.ListChildren(ctx, destinationID, scope)
		if err != nil {
			return err
		}
		oldParentID := source.ParentID
		source.ParentID = destinationID
		source.Position = len(newSiblings) + 1
		source.Changer = authorID
		source.Changed = now
		if err := tx.UpdateNode(ctx, source); err != nil {
			return err
		}
		if err := r.compact(ctx, tx, oldParentID, scope); err != nil {
			return err
		}
		if err := r.strategy.VerifySubtree(ctx, tx, source.ID); err != nil {
			return err
		}
		moved, err = tx.GetNode(ctx, source.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.strategy.InvalidateCache()
	r.logger.Info("moved node",
		zap.String("id", moved.ID),
		zap.String("from", oldPath),
		zap.String("to", moved.Path),
		zap.String("author", authorID),
	)
	return moved, nil
}

// Copy clones the subtree of sourceID below destinationID. The clones get new
// IDs and fresh unique paths without any history.
func (r *NodeRepository) Copy(ctx context.Context, sourceID string, destinationID *string, scope, locale, authorID string) (*repository.Node, error) {
	var root *repository.Node
	err := repository.WithTx(ctx, r.store, func(tx repository.Tx) error {
		source, err := repository.GetNodeInScope(ctx, tx, sourceID, scope)
		if err != nil {
			return err
		}
		destPath, err := destination(ctx, tx, "copy", sourceID, destinationID, scope)
		if err != nil {
			return err
		}

		subtree, err := repository.Subtree(ctx, tx, source.ID)
		if err != nil {
			return err
		}
		entries := resourcelocator.Subtree(subtree, source.Path)
		for i := range entries {
			// the clones do not exist yet, so every holder is foreign
			entries[i].NodeID = ""
		}
		candidate := resourcelocator.Join(destPath, resourcelocator.Segment(source.Path))
		newPath, err := r.strategy.UniqueSubtreePath(ctx, tx, scope, locale, candidate, entries)
		if err != nil {
			return err
		}
		siblings, err := tx.ListChildren(ctx, destinationID, scope)
		if err != nil {
			return err
		}

		now := r.strategy.Now()
		ids := make(map[string]string, len(subtree))
		for i, node := range subtree {
			clone := node.Clone()
			clone.ID = uuid.NewString()
			ids[node.ID] = clone.ID
			clone.Path = newPath + entries[i].Rel
			clone.Creator = authorID
			clone.Created = now
			if i == 0 {
				clone.ParentID = destinationID
				clone.Position = len(siblings) + 1
				clone.Changer = authorID
				clone.Changed = now
			} else {
				parentID := ids[*node.ParentID]
				clone.ParentID = &parentID
			}
			if err := tx.CreateNode(ctx, clone); err != nil {
				return err
			}
			if i == 0 {
				root = clone
			}
		}
		return r.strategy.VerifySubtree(ctx, tx, root.ID)
	})
	if err != nil {
		return nil, err
	}

	r.strategy.InvalidateCache()
	r.logger.Info("copied node",
		zap.String("source", sourceID),
		zap.String("id", root.ID),
		zap.String("path", root.Path),
		zap.String("author", authorID),
	)
	return root, nil
}

// OrderBefore moves a node directly in front of a sibling. Paths are not
// touched.
func (r *NodeRepository) OrderBefore(ctx context.Context, sourceID, targetID, scope, locale, authorID string) (*repository.Node, error) {
	var ordered *repository.Node
	err := repository.WithTx(ctx, r.store, func(tx repository.Tx) error {
		source, err := repository.GetNodeInScope(ctx, tx, sourceID, scope)
		if err != nil {
			return err
		}
		target, err := repository.GetNodeInScope(ctx, tx, targetID, scope)
		if err != nil {
			return err
		}
		if !sameParent(source.ParentID, target.ParentID) {
			return &repository.ConflictError{Op: "order", ID: sourceID, Reason: fmt.Sprintf("%s is not a sibling", targetID)}
		}
		if source.ID == target.ID {
			// a node already sits in front of its successor
			ordered = source
			return nil
		}

		siblings, err := tx.ListChildren(ctx, source.ParentID, scope)
		if err != nil {
			return err
		}
		others := without(siblings, source.ID)
		index := len(others)
		for i, sibling := range others {
			if sibling.ID == target.ID {
				index = i
				break
			}
		}
		ordered, err = r.reorder(ctx, tx, others, source, index, authorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("ordered node", zap.String("id", sourceID), zap.String("before", targetID), zap.Int("position", ordered.Position))
	return ordered, nil
}

// OrderAt moves a node to a 1-based position among its siblings. The
// position is clamped to the valid range.
func (r *NodeRepository) OrderAt(ctx context.Context, sourceID string, position int, scope, locale, authorID string) (*repository.Node, error) {
	var ordered *repository.Node
	err := repository.WithTx(ctx, r.store, func(tx repository.Tx) error {
		source, err := repository.GetNodeInScope(ctx, tx, sourceID, scope)
		if err != nil {
			return err
		}
		siblings, err := tx.ListChildren(ctx, source.ParentID, scope)
		if err != nil {
			return err
		}
		if position < 1 {
			position = 1
		}
		if position > len(siblings) {
			position = len(siblings)
		}
		ordered, err = r.reorder(ctx, tx, without(siblings, source.ID), source, position-1, authorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("ordered node", zap.String("id", sourceID), zap.Int("position", ordered.Position))
	return ordered, nil
}

// Rename regenerates the last segment of a node's path from parts and moves
// its descendants along
func (r *NodeRepository) Rename(ctx context.Context, id string, parts []string, scope, locale, authorID string) (*repository.Node, error) {
	var renamed *repository.Node
	err := repository.WithTx(ctx, r.store, func(tx repository.Tx) error {
		node, err := repository.GetNodeInScope(ctx, tx, id, scope)
		if err != nil {
			return err
		}
		parentPath := resourcelocator.ParentOf(node.Path)
		candidate, err := r.strategy.Resolver().Generate(parts, parentPath, locale)
		if err != nil {
			return err
		}

		now := r.strategy.Now()
		if candidate != node.Path {
			subtree, err := repository.Subtree(ctx, tx, node.ID)
			if err != nil {
				return err
			}
			newPath, err := r.strategy.UniqueSubtreePath(ctx, tx, scope, locale, candidate, resourcelocator.Subtree(subtree, node.Path))
			if err != nil {
				return err
			}
			if err := r.strategy.RewriteSubtree(ctx, tx, subtree, node.Path, newPath, locale, now); err != nil {
				return err
			}
		}

		if node.Translations[locale] == nil {
			node.Translations[locale] = make(map[string]string)
		}
		node.Translations[locale]["title"] = strings.Join(parts, " ")
		node.Changer = authorID
		node.Changed = now
		if err := tx.UpdateNode(ctx, node); err != nil {
			return err
		}
		if err := r.strategy.VerifySubtree(ctx, tx, node.ID); err != nil {
			return err
		}
		renamed, err = tx.GetNode(ctx, node.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.strategy.InvalidateCache()
	r.logger.Info("renamed node", zap.String("id", id), zap.String("path", renamed.Path))
	return renamed, nil
}

// Remove deletes a node, its descendants and their archived paths
func (r *NodeRepository) Remove(ctx context.Context, id, scope string) error {
	var removed int
	err := repository.WithTx(ctx, r.store, func(tx repository.Tx) error {
		node, err := repository.GetNodeInScope(ctx, tx, id, scope)
		if err != nil {
			return err
		}
		subtree, err := repository.Subtree(ctx, tx, node.ID)
		if err != nil {
			return err
		}
		// children before parents
		for i := len(subtree) - 1; i >= 0; i-- {
			if err := tx.DeleteNodeHistory(ctx, subtree[i].ID); err != nil {
				return err
			}
			if err := tx.DeleteNode(ctx, subtree[i].ID); err != nil {
				return err
			}
		}
		removed = len(subtree)
		return r.compact(ctx, tx, node.ParentID, scope)
	})
	if err != nil {
		return err
	}

	r.strategy.InvalidateCache()
	r.logger.Info("removed node", zap.String("id", id), zap.Int("nodes", removed))
	return nil
}

// reorder inserts source into others at index and renumbers positions 1..n
func (r *NodeRepository) reorder(ctx context.Context, tx repository.Tx, others []*repository.Node, source *repository.Node, index int, authorID string) (*repository.Node, error) {
	siblings := make([]*repository.Node, 0, len(others)+1)
	siblings = append(siblings, others[:index]...)
	siblings = append(siblings, source)
	siblings = append(siblings, others[index:]...)

	now := r.strategy.Now()
	for i, sibling := range siblings {
		position := i + 1
		if sibling.ID == source.ID {
			sibling.Position = position
			sibling.Changer = authorID
			sibling.Changed = now
			if err := tx.UpdateNode(ctx, sibling); err != nil {
				return nil, err
			}
			continue
		}
		if sibling.Position != position {
			sibling.Position = position
			if err := tx.UpdateNode(ctx, sibling); err != nil {
				return nil, err
			}
		}
	}
	return tx.GetNode(ctx, source.ID)
}

// compact renumbers the children of parentID to 1..n after one left
func (r *NodeRepository) compact(ctx context.Context, tx repository.Tx, parentID *string, scope string) error {
	children, err := tx.ListChildren(ctx, parentID, scope)
	if err != nil {
		return err
	}
	for i, child := range children {
		if child.Position != i+1 {
			child.Position = i + 1
			if err := tx.UpdateNode(ctx, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func without(nodes []*repository.Node, id string) []*repository.Node {
	result := make([]*repository.Node, 0, len(nodes))
	for _, node := range nodes {
		if node.ID != id {
			result = append(result, node)
		}
	}
	return result
}
