package resourcelocator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sulu/sulu-sub013/cache"
	"github.com/sulu/sulu-sub013/models"
	"github.com/sulu/sulu-sub013/repository"
)

// maxSuffix bounds the search for a free numeric suffix
const maxSuffix = 10000

// GenerateInput describes a path to generate. ParentID takes precedence over
// ParentPath when set.
type GenerateInput struct {
	Parts       []string
	ParentPath  string
	ParentID    *string
	Scope       string
	Locale      string
	TemplateKey string
}

// SubtreeEntry is a node of a subtree whose path is rewritten together with
// its root. Rel is the path relative to the root, "" for the root itself.
type SubtreeEntry struct {
	NodeID string
	Rel    string
}

// Strategy assigns unique resource locators within a scope and keeps the
// history of archived ones
type Strategy struct {
	store    repository.Store
	resolver *PathResolver
	cache    cache.CacheProvider
	logger   *zap.Logger
	now      func() time.Time

	// cacheMu orders cache writes against invalidations; generation counts
	// the invalidations
	cacheMu    sync.Mutex
	generation uint64
}

// NewStrategy creates a strategy over store. cacheProvider may be nil.
func NewStrategy(store repository.Store, resolver *PathResolver, cacheProvider cache.CacheProvider, logger *zap.Logger) *Strategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		store:    store,
		resolver: resolver,
		cache:    cacheProvider,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for history and audit timestamps
func (s *Strategy) SetClock(now func() time.Time) {
	s.now = now
}

// Now returns the current time of the strategy's clock
func (s *Strategy) Now() time.Time {
	return s.now()
}

// Resolver returns the path resolver used by the strategy
func (s *Strategy) Resolver() *PathResolver {
	return s.resolver
}

// Generate returns a path for in that is free within its scope. The path is
// not reserved; it is claimed when a node is saved with it.
func (s *Strategy) Generate(ctx context.Context, in GenerateInput) (string, error) {
	if in.Scope == "" {
		return "", &repository.MissingArgumentError{Argument: "scope"}
	}

	var path string
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		var candidate string
		var err error
		if in.ParentID != nil {
			candidate, err = s.resolver.GenerateForNode(ctx, tx, in.Parts, *in.ParentID, in.Scope, in.Locale)
		} else {
			candidate, err = s.resolver.Generate(in.Parts, in.ParentPath, in.Locale)
		}
		if err != nil {
			return err
		}
		path, err = s.UniquePath(ctx, tx, in.Scope, in.Locale, candidate, "")
		return err
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("generated resource locator",
		zap.String("path", path),
		zap.String("scope", in.Scope),
		zap.String("locale", in.Locale),
		zap.String("template", in.TemplateKey),
	)
	return path, nil
}

// GetHistory returns the archived paths of a node, newest first
func (s *Strategy) GetHistory(ctx context.Context, nodeID, scope, locale string) ([]*repository.PathHistoryEntry, error) {
	var entries []*repository.PathHistoryEntry
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		if _, err := repository.GetNodeInScope(ctx, tx, nodeID, scope); err != nil {
			return err
		}
		var err error
		entries, err = tx.ListHistory(ctx, nodeID, scope, locale)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Restore makes an archived path the active path of its node again. The
// node's current path is archived and its descendants follow the restored
// prefix.
func (s *Strategy) Restore(ctx context.Context, oldPath, scope, locale, authorID string) (string, error) {
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		entry, err := tx.GetHistoryEntry(ctx, scope, locale, oldPath)
		if err != nil {
			return err
		}
		node, err := tx.GetNode(ctx, entry.NodeID)
		if err != nil {
			return err
		}

		parentPath := ""
		if node.ParentID != nil {
			parent, err := tx.GetNode(ctx, *node.ParentID)
			if err != nil {
				return err
			}
			parentPath = parent.Path
		}
		if ParentOf(oldPath) != parentPath {
			return &repository.ConflictError{
				Op:     "restore",
				ID:     oldPath,
				Reason: fmt.Sprintf("node %s no longer lives below %q", node.ID, ParentOf(oldPath)),
			}
		}

		now := s.now()
		if node.Path == oldPath {
			return tx.DeleteHistory(ctx, scope, locale, oldPath)
		}

		subtree, err := repository.Subtree(ctx, tx, node.ID)
		if err != nil {
			return err
		}
		if err := s.RewriteSubtree(ctx, tx, subtree, node.Path, oldPath, locale, now); err != nil {
			return err
		}
		if err := tx.TouchNode(ctx, node.ID, authorID, now); err != nil {
			return err
		}
		return s.VerifySubtree(ctx, tx, node.ID)
	})
	if err != nil {
		return "", err
	}

	s.InvalidateCache()
	s.logger.Info("restored resource locator",
		zap.String("path", oldPath),
		zap.String("scope", scope),
		zap.String("locale", locale),
		zap.String("author", authorID),
	)
	return oldPath, nil
}

// Delete removes an archived path permanently. The active path of a node
// cannot be deleted.
func (s *Strategy) Delete(ctx context.Context, path, scope, locale string) error {
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		node, err := tx.FindNodeByPath(ctx, scope, path)
		if err == nil {
			return &repository.ConflictError{
				Op:     "delete",
				ID:     path,
				Reason: fmt.Sprintf("path is the active resource locator of node %s", node.ID),
			}
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if _, err := tx.GetHistoryEntry(ctx, scope, locale, path); err != nil {
			return err
		}
		return tx.DeleteHistory(ctx, scope, locale, path)
	})
	if err != nil {
		return err
	}

	s.InvalidateCache()
	s.logger.Info("deleted resource locator",
		zap.String("path", path),
		zap.String("scope", scope),
		zap.String("locale", locale),
	)
	return nil
}

// Resolve finds the node behind path. An archived path resolves to its
// owner with Redirect set and Path holding the node's current path.
func (s *Strategy) Resolve(ctx context.Context, scope, path string) (*models.Resolution, error) {
	var generation uint64
	if s.cache != nil {
		if resolution, found := s.cache.GetResolution(scope, path); found {
			return resolution, nil
		}
		generation = s.cacheGeneration()
	}

	var resolution *models.Resolution
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		node, err := tx.FindNodeByPath(ctx, scope, path)
		if err == nil {
			resolution = &models.Resolution{NodeID: node.ID, Scope: scope, Path: node.Path, RequestedPath: path}
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		entries, err := tx.FindHistoryByPath(ctx, scope, path)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return &repository.NotFoundError{Kind: "path", ID: path}
		}
		node, err = tx.GetNode(ctx, entries[0].NodeID)
		if err != nil {
			return err
		}
		resolution = &models.Resolution{NodeID: node.ID, Scope: scope, Path: node.Path, RequestedPath: path, Redirect: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cacheMu.Lock()
		// paths changed while the lookup ran, the result may already be stale
		if s.generation == generation {
			s.cache.SetResolution(scope, path, resolution)
		}
		s.cacheMu.Unlock()
	}
	return resolution, nil
}

func (s *Strategy) cacheGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// InvalidateCache drops cached resolutions after paths changed
func (s *Strategy) InvalidateCache() {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	s.cache.InvalidateCache()
}

// IsReserved reports whether path is held in scope by a node other than
// ownerID, either as its active path or in its history. An empty ownerID
// treats every holder as foreign.
func (s *Strategy) IsReserved(ctx context.Context, tx repository.Tx, scope, path, ownerID string) (bool, error) {
	holder, err := tx.FindNodeByPath(ctx, scope, path)
	if err == nil {
		if holder.ID != ownerID {
			return true, nil
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	entries, err := tx.FindHistoryByPath(ctx, scope, path)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.NodeID != ownerID {
			return true, nil
		}
	}
	return false, nil
}

// UniquePath returns candidate, or candidate with the first numeric suffix
// that is not reserved in scope
func (s *Strategy) UniquePath(ctx context.Context, tx repository.Tx, scope, locale, candidate, ownerID string) (string, error) {
	return s.UniqueSubtreePath(ctx, tx, scope, locale, candidate, []SubtreeEntry{{NodeID: ownerID}})
}

// UniqueSubtreePath returns the first root path, starting with candidate and
// continuing with numeric suffixes, under which every entry of subtree is
// free
func (s *Strategy) UniqueSubtreePath(ctx context.Context, tx repository.Tx, scope, locale, candidate string, subtree []SubtreeEntry) (string, error) {
	separator := s.resolver.Separator(locale)
	for i := 1; i <= maxSuffix; i++ {
		root := candidate
		if i > 1 {
			root = candidate + separator + strconv.Itoa(i)
		}
		free := true
		for _, entry := range subtree {
			reserved, err := s.IsReserved(ctx, tx, scope, root+entry.Rel, entry.NodeID)
			if err != nil {
				return "", err
			}
			if reserved {
				free = false
				break
			}
		}
		if free {
			return root, nil
		}
	}
	return "", &repository.ConflictError{Op: "generate", ID: candidate, Reason: "no free suffix available"}
}

// AssignPath makes path the active path of node. The previous path is
// archived under locale; an archived path of the node itself is reactivated.
func (s *Strategy) AssignPath(ctx context.Context, tx repository.Tx, node *repository.Node, path, locale string, at time.Time) error {
	if node.Path == path {
		return nil
	}
	reserved, err := s.IsReserved(ctx, tx, node.Scope, path, node.ID)
	if err != nil {
		return err
	}
	if reserved {
		return &repository.ConflictError{Op: "assign path to", ID: node.ID, Reason: fmt.Sprintf("%q is reserved by another node", path)}
	}

	own, err := tx.FindHistoryByPath(ctx, node.Scope, path)
	if err != nil {
		return err
	}
	for _, entry := range own {
		if err := tx.DeleteHistory(ctx, entry.Scope, entry.Locale, entry.Path); err != nil {
			return err
		}
	}

	if node.Path != "" {
		if err := tx.AddHistory(ctx, &repository.PathHistoryEntry{
			Scope:     node.Scope,
			Locale:    locale,
			Path:      node.Path,
			NodeID:    node.ID,
			CreatedAt: at,
		}); err != nil {
			return err
		}
	}
	if err := tx.UpdateNodePath(ctx, node.ID, path); err != nil {
		return err
	}
	node.Path = path
	return nil
}

// RewriteSubtree replaces the oldRoot prefix of every path in subtree with
// newRoot, archiving each previous path once
func (s *Strategy) RewriteSubtree(ctx context.Context, tx repository.Tx, subtree []*repository.Node, oldRoot, newRoot, locale string, at time.Time) error {
	for _, node := range subtree {
		if node.Path != oldRoot && !strings.HasPrefix(node.Path, oldRoot+"/") {
			return &repository.InvariantError{Message: fmt.Sprintf("path %q of node %s is not below %q", node.Path, node.ID, oldRoot)}
		}
		if err := s.AssignPath(ctx, tx, node, newRoot+strings.TrimPrefix(node.Path, oldRoot), locale, at); err != nil {
			return err
		}
	}
	s.logger.Debug("rewrote subtree paths",
		zap.String("from", oldRoot),
		zap.String("to", newRoot),
		zap.Int("nodes", len(subtree)),
	)
	return nil
}

// VerifySubtree checks that every path below rootID extends its parent's path
// by exactly one segment
func (s *Strategy) VerifySubtree(ctx context.Context, tx repository.Tx, rootID string) error {
	subtree, err := repository.Subtree(ctx, tx, rootID)
	if err != nil {
		return err
	}
	paths := make(map[string]string, len(subtree))
	for i, node := range subtree {
		paths[node.ID] = node.Path
		var parentPath string
		if i == 0 {
			if node.ParentID != nil {
				parent, err := tx.GetNode(ctx, *node.ParentID)
				if err != nil {
					return err
				}
				parentPath = parent.Path
			}
		} else {
			parentPath = paths[*node.ParentID]
		}
		if ParentOf(node.Path) != parentPath || Segment(node.Path) == "" {
			return &repository.InvariantError{Message: fmt.Sprintf("path %q of node %s does not extend %q", node.Path, node.ID, parentPath)}
		}
	}
	return nil
}

// Subtree describes nodes relative to their root path for UniqueSubtreePath
func Subtree(nodes []*repository.Node, rootPath string) []SubtreeEntry {
	entries := make([]SubtreeEntry, 0, len(nodes))
	for _, node := range nodes {
		entries = append(entries, SubtreeEntry{NodeID: node.ID, Rel: strings.TrimPrefix(node.Path, rootPath)})
	}
	return entries
}
