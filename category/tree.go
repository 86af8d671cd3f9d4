// Package category maintains the category taxonomy as a nested set.
//
// Every category owns the interval [lft, rgt]; a category is an ancestor of
// another exactly when its interval contains the other's. Structural changes
// shift the bounds of the whole table inside one transaction and are checked
// against the nested set invariants before commit.
package category

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sulu/sulu-sub013/repository"
)

// Tree manipulates the category nested set
type Tree struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewTree creates a category tree over store
func NewTree(store repository.Store, logger *zap.Logger) *Tree {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tree{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Insert adds a category as the last child of parentID, or as the last
// top-level category for nil
func (t *Tree) Insert(ctx context.Context, parentID *string, key *string) (*repository.CategoryNode, error) {
	var created *repository.CategoryNode
	err := repository.WithTx(ctx, t.store, func(tx repository.Tx) error {
		at, depth, err := insertionPoint(ctx, tx, parentID)
		if err != nil {
			return err
		}
		if err := tx.ShiftCategoryBounds(ctx, at, 2); err != nil {
			return err
		}
		created = &repository.CategoryNode{
			ID:       uuid.NewString(),
			Key:      key,
			ParentID: parentID,
			Lft:      at,
			Rgt:      at + 1,
			Depth:    depth,
			Created:  t.now(),
		}
		if err := tx.CreateCategory(ctx, created); err != nil {
			return err
		}
		return verify(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	t.logger.Debug("inserted category",
		zap.String("id", created.ID),
		zap.Int("lft", created.Lft),
		zap.Int("rgt", created.Rgt),
	)
	return created, nil
}

// insertionPoint returns the lft of a new last child of parentID and its depth
func insertionPoint(ctx context.Context, tx repository.Tx, parentID *string) (int, int, error) {
	if parentID == nil {
		maxRgt, err := tx.MaxCategoryRgt(ctx)
		if err != nil {
			return 0, 0, err
		}
		return maxRgt + 1, 0, nil
	}
	parent, err := tx.GetCategory(ctx, *parentID)
	if err != nil {
		return 0, 0, err
	}
	return parent.Rgt, parent.Depth + 1, nil
}

// Move re-parents a category with its whole subtree. The subtree becomes the
// last child of parentID, or the last top-level subtree for nil.
func (t *Tree) Move(ctx context.Context, id string, parentID *string) (*repository.CategoryNode, error) {
	var moved *repository.CategoryNode
	err := repository.WithTx(ctx, t.store, func(tx repository.Tx) error {
		node, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if parentID != nil {
			parent, err := tx.GetCategory(ctx, *parentID)
			if err != nil {
				return err
			}
			if parent.Lft >= node.Lft && parent.Lft <= node.Rgt {
				return &repository.ConflictError{Op: "move category", ID: id, Reason: fmt.Sprintf("%s is the category itself or one of its descendants", parent.ID)}
			}
		}

		at, depth, err := insertionPoint(ctx, tx, parentID)
		if err != nil {
			return err
		}
		width := node.Rgt - node.Lft + 1

		// open a gap at the insertion point
		if err := tx.ShiftCategoryBounds(ctx, at, width); err != nil {
			return err
		}
		lft, rgt := node.Lft, node.Rgt
		if lft >= at {
			lft += width
			rgt += width
		}
		// move the subtree into the gap
		if err := tx.ShiftCategoryRange(ctx, lft, rgt, at-lft, depth-node.Depth); err != nil {
			return err
		}
		// close the hole it left behind
		if err := tx.ShiftCategoryBounds(ctx, rgt+1, -width); err != nil {
			return err
		}
		if err := tx.SetCategoryParent(ctx, id, parentID); err != nil {
			return err
		}
		if err := verify(ctx, tx); err != nil {
			return err
		}
		moved, err = tx.GetCategory(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	t.logger.Debug("moved category", zap.String("id", id), zap.Int("lft", moved.Lft), zap.Int("rgt", moved.Rgt))
	return moved, nil
}

// Delete removes a category together with its descendants
func (t *Tree) Delete(ctx context.Context, id string) error {
	return repository.WithTx(ctx, t.store, func(tx repository.Tx) error {
		node, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteCategoryRange(ctx, node.Lft, node.Rgt); err != nil {
			return err
		}
		if err := tx.ShiftCategoryBounds(ctx, node.Rgt+1, -(node.Rgt - node.Lft + 1)); err != nil {
			return err
		}
		t.logger.Debug("deleted category", zap.String("id", id), zap.Int("nodes", (node.Rgt-node.Lft+1)/2))
		return verify(ctx, tx)
	})
}

// Get retrieves a category by ID
func (t *Tree) Get(ctx context.Context, id string) (*repository.CategoryNode, error) {
	var node *repository.CategoryNode
	err := repository.WithTx(ctx, t.store, func(tx repository.Tx) error {
		var err error
		node, err = tx.GetCategory(ctx, id)
		return err
	})
	return node, err
}

// GetByKey retrieves a category by its key
func (t *Tree) GetByKey(ctx context.Context, key string) (*repository.CategoryNode, error) {
	var node *repository.CategoryNode
	err := repository.WithTx(ctx, t.store, func(tx repository.Tx) error {
		var err error
		node, err = tx.GetCategoryByKey(ctx, key)
		return err
	})
	return node, err
}

// List returns every category ordered by lft
func (t *Tree) List(ctx context.Context) ([]*repository.CategoryNode, error) {
	var nodes []*repository.CategoryNode
	err := repository.WithTx(ctx, t.store, func(tx repository.Tx) error {
		var err error
		nodes, err = tx.ListCategories(ctx)
		return err
	})
	return nodes, err
}

// DescendantsOf returns the categories strictly inside the interval of id
func (t *Tree) DescendantsOf(ctx context.Context, id string) ([]*repository.CategoryNode, error) {
	var nodes []*repository.CategoryNode
	err := repository.WithTx(ctx, t.store, func(tx repository.Tx) error {
		node, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		nodes, err = tx.ListCategoriesInRange(ctx, repository.CategoryRange{
			LftAbove: node.Lft,
			LftBelow: node.Rgt,
			RgtAbove: node.Lft,
			RgtBelow: node.Rgt,
		})
		return err
	})
	return nodes, err
}

// AncestorsOf returns the categories whose interval contains id, root first
func (t *Tree) AncestorsOf(ctx context.Context, id string) ([]*repository.CategoryNode, error) {
	var nodes []*repository.CategoryNode
	err := repository.WithTx(ctx, t.store, func(tx repository.Tx) error {
		node, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		nodes, err = tx.ListCategoriesInRange(ctx, repository.CategoryRange{
			LftAbove: 0,
			LftBelow: node.Lft,
			RgtAbove: node.Rgt,
			RgtBelow: math.MaxInt32,
		})
		return err
	})
	return nodes, err
}

// FindBetween returns every category c for which some f in fromIDs and t in
// toIDs satisfy f.lft < c.lft < t.lft and t.rgt < c.rgt < f.rgt, ordered by
// lft
func (t *Tree) FindBetween(ctx context.Context, fromIDs, toIDs []string) ([]*repository.CategoryNode, error) {
	var result []*repository.CategoryNode
	err := repository.WithTx(ctx, t.store, func(tx repository.Tx) error {
		from, err := loadCategories(ctx, tx, fromIDs)
		if err != nil {
			return err
		}
		to, err := loadCategories(ctx, tx, toIDs)
		if err != nil {
			return err
		}

		seen := make(map[string]bool)
		for _, f := range from {
			for _, target := range to {
				if target.Lft-f.Lft < 2 || f.Rgt-target.Rgt < 2 {
					continue
				}
				matches, err := tx.ListCategoriesInRange(ctx, repository.CategoryRange{
					LftAbove: f.Lft,
					LftBelow: target.Lft,
					RgtAbove: target.Rgt,
					RgtBelow: f.Rgt,
				})
				if err != nil {
					return err
				}
				for _, c := range matches {
					if !seen[c.ID] {
						seen[c.ID] = true
						result = append(result, c)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Lft < result[j].Lft })
	return result, nil
}

func loadCategories(ctx context.Context, tx repository.Tx, ids []string) ([]*repository.CategoryNode, error) {
	nodes := make([]*repository.CategoryNode, 0, len(ids))
	for _, id := range ids {
		node, err := tx.GetCategory(ctx, id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Verify checks the nested set invariants of the whole table
func (t *Tree) Verify(ctx context.Context) error {
	return repository.WithTx(ctx, t.store, func(tx repository.Tx) error {
		return verify(ctx, tx)
	})
}

func verify(ctx context.Context, tx repository.Tx) error {
	nodes, err := tx.ListCategories(ctx)
	if err != nil {
		return err
	}

	bounds := make(map[int]string, 2*len(nodes))
	claim := func(bound int, id string) error {
		if bound < 1 || bound > 2*len(nodes) {
			return &repository.InvariantError{Message: fmt.Sprintf("bound %d of category %s is outside 1..%d", bound, id, 2*len(nodes))}
		}
		if other, taken := bounds[bound]; taken {
			return &repository.InvariantError{Message: fmt.Sprintf("bound %d is shared by categories %s and %s", bound, other, id)}
		}
		bounds[bound] = id
		return nil
	}

	var stack []*repository.CategoryNode
	for _, node := range nodes {
		if node.Lft >= node.Rgt {
			return &repository.InvariantError{Message: fmt.Sprintf("category %s has lft %d >= rgt %d", node.ID, node.Lft, node.Rgt)}
		}
		if err := claim(node.Lft, node.ID); err != nil {
			return err
		}
		if err := claim(node.Rgt, node.ID); err != nil {
			return err
		}

		for len(stack) > 0 && stack[len(stack)-1].Rgt < node.Lft {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			if node.Rgt > parent.Rgt {
				return &repository.InvariantError{Message: fmt.Sprintf("category %s overlaps %s", node.ID, parent.ID)}
			}
			if node.ParentID == nil || *node.ParentID != parent.ID {
				return &repository.InvariantError{Message: fmt.Sprintf("category %s lies inside %s but does not reference it as parent", node.ID, parent.ID)}
			}
		} else if node.ParentID != nil {
			return &repository.InvariantError{Message: fmt.Sprintf("top-level category %s references parent %s", node.ID, *node.ParentID)}
		}
		if node.Depth != len(stack) {
			return &repository.InvariantError{Message: fmt.Sprintf("category %s has depth %d, expected %d", node.ID, node.Depth, len(stack))}
		}
		stack = append(stack, node)
	}
	return nil
}
