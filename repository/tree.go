package repository

import (
	"context"
	"fmt"
)

// Subtree returns the node with the given ID followed by all of its
// descendants in depth-first pre-order, siblings by position.
func Subtree(ctx context.Context, tx Tx, id string) ([]*Node, error) {
	root, err := tx.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}

	var nodes []*Node
	var walk func(node *Node) error
	walk = func(node *Node) error {
		nodes = append(nodes, node)
		children, err := tx.ListChildren(ctx, &node.ID, node.Scope)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Ancestors returns the parent chain of a node, nearest first
func Ancestors(ctx context.Context, tx Tx, id string) ([]*Node, error) {
	node, err := tx.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}

	var ancestors []*Node
	seen := map[string]bool{node.ID: true}
	for node.ParentID != nil {
		parent, err := tx.GetNode(ctx, *node.ParentID)
		if err != nil {
			return nil, err
		}
		if seen[parent.ID] {
			return nil, &InvariantError{Message: fmt.Sprintf("parent chain of node %s contains a cycle", id)}
		}
		seen[parent.ID] = true
		ancestors = append(ancestors, parent)
		node = parent
	}
	return ancestors, nil
}

// IsDescendantOrSelf reports whether candidate is id itself or lies below it
func IsDescendantOrSelf(ctx context.Context, tx Tx, candidate, id string) (bool, error) {
	if candidate == id {
		return true, nil
	}
	ancestors, err := Ancestors(ctx, tx, candidate)
	if err != nil {
		return false, err
	}
	for _, ancestor := range ancestors {
		if ancestor.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// GetNodeInScope loads a node and treats nodes of other scopes as absent
func GetNodeInScope(ctx context.Context, tx Tx, id, scope string) (*Node, error) {
	node, err := tx.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node.Scope != scope {
		return nil, nodeNotFound(id)
	}
	return node, nil
}
